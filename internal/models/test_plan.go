package models

import (
	"time"

	"gorm.io/gorm"
)

type TestPlan struct {
	ID uint `gorm:"primaryKey" json:"id"`
	Sequenced
	ProjectID   uint           `gorm:"index;not null" json:"project_id"`
	UserID      uint           `gorm:"index;not null" json:"user_id"`
	AssignedTo  *uint          `gorm:"index" json:"assigned_to"`
	Title       string         `gorm:"size:256;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Creator     *User          `gorm:"foreignKey:UserID" json:"creator,omitempty"`
	Assignee    *User          `gorm:"foreignKey:AssignedTo" json:"assignee,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (TestPlan) TableName() string { return "test_plans" }
