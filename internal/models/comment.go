package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is attached to a project, optionally narrowed to one of its
// entities via EntityType/EntityID.
type Comment struct {
	ID uint `gorm:"primaryKey" json:"id"`
	Sequenced
	ProjectID  uint           `gorm:"index;not null" json:"project_id"`
	UserID     uint           `gorm:"index;not null" json:"user_id"`
	EntityType string         `gorm:"size:50;index:idx_comment_entity" json:"entity_type"`
	EntityID   *uint          `gorm:"index:idx_comment_entity" json:"entity_id"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	Author     *User          `gorm:"foreignKey:UserID" json:"author,omitempty"`
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Comment) TableName() string { return "comments" }
