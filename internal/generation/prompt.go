package generation

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
	"time"

	"github.com/yukikurage/project-planner-api/internal/constants"
)

//go:embed templates
var templateFS embed.FS

var promptTemplate = template.Must(
	template.New("prompt.tmpl").
		Funcs(template.FuncMap{
			"date": func(t time.Time) string { return t.Format("2006-01-02") },
		}).
		ParseFS(templateFS, "templates/prompt.tmpl"),
)

type promptData struct {
	ProjectDescriptor
	MinTasks int
	MaxTasks int
}

// BuildPrompt renders the generation prompt for a normalized descriptor.
func BuildPrompt(project ProjectDescriptor) (string, error) {
	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, promptData{
		ProjectDescriptor: project,
		MinTasks:          constants.MinGeneratedTasks,
		MaxTasks:          constants.MaxGeneratedTasks,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}
