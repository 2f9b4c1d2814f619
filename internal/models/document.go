package models

import (
	"time"

	"gorm.io/gorm"
)

// Document holds metadata only; the bytes live in the configured storage.Store
// under StorageKey.
type Document struct {
	ID uint `gorm:"primaryKey" json:"id"`
	Sequenced
	ProjectID   uint           `gorm:"index;not null" json:"project_id"`
	UserID      uint           `gorm:"index;not null" json:"user_id"`
	AssignedTo  *uint          `gorm:"index" json:"assigned_to"`
	Name        string         `gorm:"size:256;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	FileName    string         `gorm:"size:256;not null" json:"file_name"`
	StorageKey  string         `gorm:"size:300;not null" json:"-"`
	ContentType string         `gorm:"size:100" json:"content_type"`
	Size        int64          `json:"size"`
	Creator     *User          `gorm:"foreignKey:UserID" json:"creator,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Document) TableName() string { return "documents" }
