package models

import "strings"

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

type ProjectStatus string

const (
	ProjectStatusPending    ProjectStatus = "PENDING"
	ProjectStatusInProgress ProjectStatus = "IN_PROGRESS"
	ProjectStatusCompleted  ProjectStatus = "COMPLETED"
)

type SubtaskStatus string

const (
	SubtaskStatusPending    SubtaskStatus = "PENDING"
	SubtaskStatusInProgress SubtaskStatus = "IN_PROGRESS"
	SubtaskStatusCompleted  SubtaskStatus = "COMPLETED"
	SubtaskStatusBlocked    SubtaskStatus = "BLOCKED"
)

type Phase string

const (
	PhasePlanning  Phase = "PLANNING"
	PhaseExecution Phase = "EXECUTION"
	PhaseReview    Phase = "REVIEW"
	PhaseQA        Phase = "QA"
)

type Complexity string

const (
	ComplexityLow    Complexity = "LOW"
	ComplexityMedium Complexity = "MEDIUM"
	ComplexityHigh   Complexity = "HIGH"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// normalizeEnum folds "In progress", "in-progress" and "IN_PROGRESS" onto the same key.
func normalizeEnum(s string) string {
	s = strings.TrimSpace(strings.ToUpper(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}

// ParsePriority accepts any casing of low/medium/high.
func ParsePriority(s string) (Priority, bool) {
	switch p := Priority(normalizeEnum(s)); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, true
	}
	return "", false
}

// ParseProjectStatus accepts any casing of pending/in progress/completed.
func ParseProjectStatus(s string) (ProjectStatus, bool) {
	switch st := ProjectStatus(normalizeEnum(s)); st {
	case ProjectStatusPending, ProjectStatusInProgress, ProjectStatusCompleted:
		return st, true
	}
	return "", false
}

// ParseSubtaskStatus accepts any casing of pending/in progress/completed/blocked.
func ParseSubtaskStatus(s string) (SubtaskStatus, bool) {
	switch st := SubtaskStatus(normalizeEnum(s)); st {
	case SubtaskStatusPending, SubtaskStatusInProgress, SubtaskStatusCompleted, SubtaskStatusBlocked:
		return st, true
	}
	return "", false
}

// ParsePhase accepts any casing of planning/execution/review/qa.
func ParsePhase(s string) (Phase, bool) {
	switch p := Phase(normalizeEnum(s)); p {
	case PhasePlanning, PhaseExecution, PhaseReview, PhaseQA:
		return p, true
	}
	return "", false
}

func ParseComplexity(s string) (Complexity, bool) {
	switch c := Complexity(normalizeEnum(s)); c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return c, true
	}
	return "", false
}

func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch r := RiskLevel(normalizeEnum(s)); r {
	case RiskLow, RiskMedium, RiskHigh:
		return r, true
	}
	return "", false
}
