// Package generation turns a project description into a scheduled set of
// subtasks. It covers prompt construction, response parsing, date
// scheduling, the deterministic fallback, the pattern cache and the
// index-to-identifier dependency resolution that runs after persistence.
package generation

import (
	"context"
	"time"

	"github.com/yukikurage/project-planner-api/internal/constants"
	"github.com/yukikurage/project-planner-api/internal/dateutil"
	"github.com/yukikurage/project-planner-api/internal/models"
)

// TextGenerator is the external text generation service. Its output is
// untrusted free text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// TaskGenerator produces a validated task set for a project.
type TaskGenerator interface {
	Generate(ctx context.Context, project ProjectDescriptor) (*TaskSet, error)
}

// ProjectDescriptor is the normalized input of the pipeline.
type ProjectDescriptor struct {
	Name        string
	Description string
	Timeline    int
	StartDate   time.Time
	DueDate     time.Time
	Priority    models.Priority
	Category    string
}

// DescriptorFromProject builds a descriptor from a persisted project.
func DescriptorFromProject(p *models.Project) ProjectDescriptor {
	return ProjectDescriptor{
		Name:        p.Name,
		Description: p.Description,
		Timeline:    p.Timeline,
		StartDate:   p.StartDate,
		DueDate:     p.DueDate,
		Priority:    p.Priority,
		Category:    p.Category,
	}
}

// WithDefaults fills every missing field so downstream stages never see a
// zero window: start defaults to today, the timeline to 30 days and the due
// date to start+timeline.
func (d ProjectDescriptor) WithDefaults(now time.Time) ProjectDescriptor {
	if d.StartDate.IsZero() {
		d.StartDate = dateutil.StartOfDay(now)
	}
	if d.Timeline <= 0 {
		if d.DueDate.After(d.StartDate) {
			d.Timeline = dateutil.DaysBetween(d.StartDate, d.DueDate)
		}
		if d.Timeline <= 0 {
			d.Timeline = constants.DefaultTimelineDays
		}
	}
	if !d.DueDate.After(d.StartDate) {
		d.DueDate = dateutil.AddDays(d.StartDate, d.Timeline)
	}
	if d.Priority == "" {
		d.Priority = models.PriorityMedium
	}
	return d
}

// Window returns the project window of the descriptor.
func (d ProjectDescriptor) Window() Window {
	return Window{Start: d.StartDate, Due: d.DueDate}
}

// TaskDescriptor is one generated subtask before persistence. Dependencies
// holds the raw values emitted by the generator; they are interpreted as
// zero-based indices into the owning TaskSet only by ResolveDependencies.
type TaskDescriptor struct {
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	EstimatedHours float64           `json:"estimatedHours"`
	Priority       models.Priority   `json:"priority"`
	Order          int               `json:"order"`
	Phase          models.Phase      `json:"phase"`
	Complexity     models.Complexity `json:"complexity"`
	RiskLevel      models.RiskLevel  `json:"riskLevel"`
	Dependencies   []any             `json:"dependencies"`
	Tags           []string          `json:"tags"`
	Skills         []string          `json:"skills"`
	StartDate      *time.Time        `json:"startDate,omitempty"`
	DueDate        *time.Time        `json:"dueDate,omitempty"`
}

type Milestone struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// TaskSet is the index-addressed hand-off between generation and persistence.
type TaskSet struct {
	Subtasks            []TaskDescriptor `json:"subtasks"`
	TotalEstimatedHours float64          `json:"totalEstimatedHours"`
	CriticalPath        []int            `json:"criticalPath"`
	Milestones          []Milestone      `json:"milestones"`
	RiskFactors         []string         `json:"riskFactors"`
	FromCache           bool             `json:"fromCache"`
}

// SumHours adds up the estimated hours of every subtask.
func (s *TaskSet) SumHours() float64 {
	var total float64
	for _, t := range s.Subtasks {
		total += t.EstimatedHours
	}
	return total
}

// Clone returns a deep copy of the set.
func (s *TaskSet) Clone() *TaskSet {
	if s == nil {
		return nil
	}
	out := &TaskSet{
		Subtasks:            make([]TaskDescriptor, len(s.Subtasks)),
		TotalEstimatedHours: s.TotalEstimatedHours,
		CriticalPath:        append([]int(nil), s.CriticalPath...),
		Milestones:          append([]Milestone(nil), s.Milestones...),
		RiskFactors:         append([]string(nil), s.RiskFactors...),
		FromCache:           s.FromCache,
	}
	for i, t := range s.Subtasks {
		t.Dependencies = append([]any(nil), t.Dependencies...)
		t.Tags = append([]string{}, t.Tags...)
		t.Skills = append([]string{}, t.Skills...)
		if t.StartDate != nil {
			v := *t.StartDate
			t.StartDate = &v
		}
		if t.DueDate != nil {
			v := *t.DueDate
			t.DueDate = &v
		}
		out.Subtasks[i] = t
	}
	return out
}
