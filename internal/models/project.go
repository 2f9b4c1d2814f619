package models

import (
	"time"

	"gorm.io/gorm"
)

// Project is the tenant boundary: every requirement, test plan, document and
// comment belongs to one, and inherits its visibility.
type Project struct {
	ID uint `gorm:"primaryKey" json:"id"`
	Sequenced
	Title       string          `gorm:"size:200;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	StartDate   *time.Time      `json:"start_date"`
	EndDate     *time.Time      `json:"end_date"`
	IsActive    bool            `gorm:"not null;index" json:"is_active"`
	UserID      uint            `gorm:"index;not null" json:"user_id"` // owner
	Owner       *User           `gorm:"foreignKey:UserID" json:"owner,omitempty"`
	Members     []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Project) TableName() string { return "projects" }
