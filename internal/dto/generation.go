package dto

import (
	"github.com/yukikurage/project-planner-api/internal/generation"
	"github.com/yukikurage/project-planner-api/internal/services"
)

// GenerateRequest is the body of POST /projects/:id/generate
type GenerateRequest struct {
	Regenerate bool `json:"regenerate"`
}

// MilestoneDTO represents a generated milestone
type MilestoneDTO struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// GenerationMetadataDTO describes how a subtask set was produced
type GenerationMetadataDTO struct {
	GenerationID        string         `json:"generation_id,omitempty"`
	TotalEstimatedHours float64        `json:"total_estimated_hours"`
	CriticalPath        []uint64       `json:"critical_path"`
	Milestones          []MilestoneDTO `json:"milestones"`
	RiskFactors         []string       `json:"risk_factors"`
	FallbackUsed        bool           `json:"fallback_used"`
	CacheUsed           bool           `json:"cache_used"`
	FallbackReason      string         `json:"fallback_reason,omitempty"`
	Existing            bool           `json:"existing,omitempty"`
}

// GenerationResponse is the result of a generation run
type GenerationResponse struct {
	Subtasks []SubtaskDTO          `json:"subtasks"`
	Metadata GenerationMetadataDTO `json:"metadata"`
}

// ToGenerationResponse converts a generation result
func ToGenerationResponse(result *services.GenerateResult) GenerationResponse {
	meta := result.Metadata
	return GenerationResponse{
		Subtasks: ToSubtaskDTOs(result.Subtasks),
		Metadata: GenerationMetadataDTO{
			GenerationID:        meta.GenerationID,
			TotalEstimatedHours: meta.TotalEstimatedHours,
			CriticalPath:        orEmpty(meta.CriticalPath),
			Milestones:          toMilestoneDTOs(meta.Milestones),
			RiskFactors:         orEmpty(meta.RiskFactors),
			FallbackUsed:        meta.FallbackUsed,
			CacheUsed:           meta.CacheUsed,
			FallbackReason:      string(meta.FallbackReason),
			Existing:            meta.Existing,
		},
	}
}

func toMilestoneDTOs(milestones []generation.Milestone) []MilestoneDTO {
	items := make([]MilestoneDTO, len(milestones))
	for i, m := range milestones {
		items[i] = MilestoneDTO{Name: m.Name, Description: m.Description}
	}
	return items
}
