package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RequirementOpen       = "open"
	RequirementInProgress = "in_progress"
	RequirementDone       = "done"
)

type Requirement struct {
	ID uint `gorm:"primaryKey" json:"id"`
	Sequenced
	ProjectID   uint           `gorm:"index;not null" json:"project_id"`
	UserID      uint           `gorm:"index;not null" json:"user_id"`
	AssignedTo  *uint          `gorm:"index" json:"assigned_to"`
	Title       string         `gorm:"size:256;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Status      string         `gorm:"size:20;not null;default:open;index" json:"status"`
	Creator     *User          `gorm:"foreignKey:UserID" json:"creator,omitempty"`
	Assignee    *User          `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Requirement) TableName() string { return "requirements" }
