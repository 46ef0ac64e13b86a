package generation

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"

	"github.com/yukikurage/project-planner-api/internal/dateutil"
	"github.com/yukikurage/project-planner-api/internal/models"
)

type fallbackTemplate struct {
	Tasks []struct {
		Title       string   `yaml:"title"`
		Description string   `yaml:"description"`
		Phase       string   `yaml:"phase"`
		Hours       float64  `yaml:"hours"`
		Priority    string   `yaml:"priority"`
		Complexity  string   `yaml:"complexity"`
		RiskLevel   string   `yaml:"risk_level"`
		Tags        []string `yaml:"tags"`
		Skills      []string `yaml:"skills"`
	} `yaml:"tasks"`
	Milestones  []Milestone `yaml:"milestones"`
	RiskFactors []string    `yaml:"risk_factors"`
}

var defaultFallbackTemplate = mustLoadFallbackTemplate()

func mustLoadFallbackTemplate() *fallbackTemplate {
	data, err := templateFS.ReadFile("templates/fallback.yaml")
	if err != nil {
		panic(fmt.Sprintf("read fallback template: %v", err))
	}
	var tpl fallbackTemplate
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		panic(fmt.Sprintf("parse fallback template: %v", err))
	}
	if len(tpl.Tasks) == 0 {
		panic("fallback template has no tasks")
	}
	return &tpl
}

// Fallback produces the deterministic, template based task set used when the
// generative path fails.
type Fallback struct {
	clock     dateutil.Clock
	scheduler *Scheduler
}

func NewFallback(clock dateutil.Clock, scheduler *Scheduler) *Fallback {
	if clock == nil {
		clock = dateutil.SystemClock{}
	}
	if scheduler == nil {
		scheduler = NewScheduler(clock)
	}
	return &Fallback{clock: clock, scheduler: scheduler}
}

// TimelineFactor scales template hours with the project length.
func TimelineFactor(timelineDays int) int {
	return int(math.Max(1, math.Floor(float64(timelineDays)/7)))
}

// Generate never fails: missing project fields are defaulted before the
// template is applied.
func (f *Fallback) Generate(project ProjectDescriptor) *TaskSet {
	project = project.WithDefaults(f.clock.Now())
	factor := float64(TimelineFactor(project.Timeline))
	tpl := defaultFallbackTemplate

	set := &TaskSet{
		Subtasks:    make([]TaskDescriptor, len(tpl.Tasks)),
		Milestones:  append([]Milestone(nil), tpl.Milestones...),
		RiskFactors: append([]string(nil), tpl.RiskFactors...),
	}
	for i, t := range tpl.Tasks {
		td := TaskDescriptor{
			Title:          t.Title,
			Description:    t.Description,
			EstimatedHours: t.Hours * factor,
			Priority:       models.PriorityMedium,
			Order:          i + 1,
			Phase:          models.PhaseExecution,
			Complexity:     models.ComplexityMedium,
			RiskLevel:      models.RiskLow,
			Dependencies:   []any{},
			Tags:           append([]string{"fallback"}, t.Tags...),
			Skills:         append([]string{}, t.Skills...),
		}
		if i > 0 {
			td.Dependencies = []any{i - 1}
		}
		if v, ok := models.ParsePriority(t.Priority); ok {
			td.Priority = v
		}
		if v, ok := models.ParsePhase(t.Phase); ok {
			td.Phase = v
		}
		if v, ok := models.ParseComplexity(t.Complexity); ok {
			td.Complexity = v
		}
		if v, ok := models.ParseRiskLevel(t.RiskLevel); ok {
			td.RiskLevel = v
		}
		set.Subtasks[i] = td
		set.CriticalPath = append(set.CriticalPath, i)
	}
	set.TotalEstimatedHours = set.SumHours()

	f.scheduler.Schedule(project.Window(), set.Subtasks)
	return set
}
