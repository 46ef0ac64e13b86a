package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Subtask struct {
	ID             uint64                      `gorm:"primarykey" json:"id"`
	ProjectID      uint64                      `gorm:"not null;index" json:"project_id"`
	Title          string                      `gorm:"type:varchar(255);not null" json:"title"`
	Description    string                      `gorm:"type:text" json:"description"`
	Order          int                         `gorm:"column:sort_order;not null" json:"order"`
	Priority       Priority                    `gorm:"type:varchar(20);not null;default:'MEDIUM'" json:"priority"`
	EstimatedHours float64                     `gorm:"not null;default:2" json:"estimated_hours"`
	Status         SubtaskStatus               `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Phase          Phase                       `gorm:"type:varchar(20);not null;default:'EXECUTION'" json:"phase"`
	Complexity     Complexity                  `gorm:"type:varchar(20);not null;default:'MEDIUM'" json:"complexity"`
	RiskLevel      RiskLevel                   `gorm:"type:varchar(20);not null;default:'LOW'" json:"risk_level"`
	StartDate      time.Time                   `gorm:"not null" json:"start_date"`
	DueDate        time.Time                   `gorm:"not null" json:"due_date"`
	CompletedDate  *time.Time                  `json:"completed_date"`
	Dependencies   datatypes.JSONSlice[uint64] `json:"dependencies"`
	Tags           datatypes.JSONSlice[string] `json:"tags"`
	Skills         datatypes.JSONSlice[string] `json:"skills"`
	AIGenerated    bool                        `gorm:"not null;default:false" json:"ai_generated"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	DeletedAt      gorm.DeletedAt              `gorm:"index" json:"-"`
}

// DependsOn reports whether id is among the subtask's dependencies.
func (s *Subtask) DependsOn(id uint64) bool {
	for _, dep := range s.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}
