package generation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yukikurage/project-planner-api/internal/constants"
	"github.com/yukikurage/project-planner-api/internal/models"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	if err := validate.RegisterValidation("nonempty", nonEmpty); err != nil {
		panic(fmt.Sprintf("generation: register nonempty validation: %v", err))
	}
}

func nonEmpty(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// rawTaskSet mirrors the JSON requested by the prompt. Loosely typed fields
// absorb the variations generators produce (numbers as strings, scalars
// instead of arrays) so a single odd value does not reject the response.
type rawTaskSet struct {
	Subtasks            []rawTask `json:"subtasks"`
	TotalEstimatedHours any       `json:"totalEstimatedHours"`
	CriticalPath        any       `json:"criticalPath"`
	Milestones          any       `json:"milestones"`
	RiskFactors         any       `json:"riskFactors"`
}

type rawTask struct {
	Title          string `json:"title" validate:"required,nonempty,max=255"`
	Description    string `json:"description" validate:"required,nonempty"`
	EstimatedHours any    `json:"estimatedHours"`
	Priority       string `json:"priority"`
	Order          any    `json:"order"`
	Phase          string `json:"phase"`
	Complexity     string `json:"complexity"`
	RiskLevel      string `json:"riskLevel"`
	Dependencies   any    `json:"dependencies"`
	Tags           any    `json:"tags"`
	Skills         any    `json:"skills"`
	StartDate      string `json:"startDate"`
	DueDate        string `json:"dueDate"`
}

// ParseResponse extracts, validates and defaults a task set from raw
// generator text. It returns ErrMalformedResponse or ErrEmptyTaskSet
// (wrapped) when the text cannot be used.
func ParseResponse(text string) (*TaskSet, error) {
	raw, err := decodeTaskSet(text)
	if err != nil {
		return nil, err
	}

	if len(raw.Subtasks) == 0 {
		return nil, ErrEmptyTaskSet
	}
	if len(raw.Subtasks) > constants.MaxAcceptedTasks {
		return nil, fmt.Errorf("%w: %d subtasks exceeds limit of %d", ErrMalformedResponse, len(raw.Subtasks), constants.MaxAcceptedTasks)
	}

	set := &TaskSet{
		Subtasks:    make([]TaskDescriptor, len(raw.Subtasks)),
		Milestones:  toMilestones(raw.Milestones),
		RiskFactors: toStrings(raw.RiskFactors, "risk", "description", "name"),
	}

	for i, rt := range raw.Subtasks {
		if err := validate.Struct(rt); err != nil {
			return nil, fmt.Errorf("%w: subtask %d: %s", ErrMalformedResponse, i, describeValidation(err))
		}
		set.Subtasks[i] = toDescriptor(i, rt)
	}

	if hours, ok := toFloat(raw.TotalEstimatedHours); ok && hours > 0 {
		set.TotalEstimatedHours = hours
	} else {
		set.TotalEstimatedHours = set.SumHours()
	}
	set.CriticalPath = toIndices(raw.CriticalPath, len(set.Subtasks))

	return set, nil
}

func decodeTaskSet(text string) (*rawTaskSet, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}

	var object string
	balanced := false
	for _, candidate := range []string{stripFences(text), text} {
		object, balanced = extractObject(candidate)
		if object != "" {
			break
		}
	}
	if object == "" {
		return nil, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}

	var raw rawTaskSet
	decodeErr := json.Unmarshal([]byte(object), &raw)
	if decodeErr == nil && balanced {
		return &raw, nil
	}

	repaired := repairJSON(object)
	raw = rawTaskSet{}
	if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
		if decodeErr == nil {
			decodeErr = err
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}
	return &raw, nil
}

func toDescriptor(index int, rt rawTask) TaskDescriptor {
	td := TaskDescriptor{
		Title:          strings.TrimSpace(rt.Title),
		Description:    strings.TrimSpace(rt.Description),
		EstimatedHours: constants.DefaultEstimatedHours,
		Priority:       models.PriorityMedium,
		Order:          index + 1,
		Phase:          models.PhaseExecution,
		Complexity:     models.ComplexityMedium,
		RiskLevel:      models.RiskLow,
		Dependencies:   toRawList(rt.Dependencies),
		Tags:           toStrings(rt.Tags),
		Skills:         toStrings(rt.Skills),
		StartDate:      parseDate(rt.StartDate),
		DueDate:        parseDate(rt.DueDate),
	}

	if hours, ok := toFloat(rt.EstimatedHours); ok && hours > 0 {
		td.EstimatedHours = math.Max(hours, constants.MinEstimatedHours)
	}
	if order, ok := toFloat(rt.Order); ok && order >= 1 && order == math.Trunc(order) {
		td.Order = int(order)
	}
	if p, ok := models.ParsePriority(rt.Priority); ok {
		td.Priority = p
	}
	if p, ok := models.ParsePhase(rt.Phase); ok {
		td.Phase = p
	}
	if c, ok := models.ParseComplexity(rt.Complexity); ok {
		td.Complexity = c
	}
	if r, ok := models.ParseRiskLevel(rt.RiskLevel); ok {
		td.RiskLevel = r
	}
	return td
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed rule '%s'", e.Field(), e.Tag()))
	}
	return strings.Join(msgs, "; ")
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// toRawList keeps dependency values verbatim. A lone scalar is treated as a
// one element list.
func toRawList(v any) []any {
	switch l := v.(type) {
	case nil:
		return []any{}
	case []any:
		return l
	default:
		return []any{l}
	}
}

// toStrings flattens a JSON value into strings. Objects contribute the first
// non-empty value among keys.
func toStrings(v any, keys ...string) []string {
	out := []string{}
	list, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
		return out
	}
	for _, item := range list {
		switch x := item.(type) {
		case string:
			if s := strings.TrimSpace(x); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			for _, k := range keys {
				if s, ok := x[k].(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
					break
				}
			}
		}
	}
	return out
}

func toMilestones(v any) []Milestone {
	out := []Milestone{}
	list, ok := v.([]any)
	if !ok {
		return out
	}
	for _, item := range list {
		switch x := item.(type) {
		case string:
			if s := strings.TrimSpace(x); s != "" {
				out = append(out, Milestone{Name: s})
			}
		case map[string]any:
			name, _ := x["name"].(string)
			if name == "" {
				name, _ = x["title"].(string)
			}
			desc, _ := x["description"].(string)
			if strings.TrimSpace(name) != "" {
				out = append(out, Milestone{Name: strings.TrimSpace(name), Description: strings.TrimSpace(desc)})
			}
		}
	}
	return out
}

// toIndices keeps the in-range integer entries of a JSON list.
func toIndices(v any, n int) []int {
	out := []int{}
	for _, item := range toRawList(v) {
		if idx, ok := asIndex(item); ok && idx >= 0 && idx < n {
			out = append(out, idx)
		}
	}
	return out
}

// asIndex accepts only integral numbers; strings and fractions are rejected.
func asIndex(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}
