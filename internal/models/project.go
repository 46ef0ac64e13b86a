package models

import (
	"time"

	"gorm.io/gorm"
)

type Project struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	OwnerID     uint64         `gorm:"not null;index" json:"owner_id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Timeline    int            `gorm:"not null" json:"timeline"`
	StartDate   time.Time      `gorm:"not null" json:"start_date"`
	DueDate     time.Time      `gorm:"not null" json:"due_date"`
	Priority    Priority       `gorm:"type:varchar(20);not null;default:'MEDIUM'" json:"priority"`
	Category    string         `gorm:"type:varchar(100)" json:"category"`
	Progress    int            `gorm:"not null;default:0" json:"progress"`
	Status      ProjectStatus  `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Subtasks []Subtask `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"subtasks,omitempty"`
}
