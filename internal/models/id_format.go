package models

import (
	"fmt"
	"time"
)

// Entity types that carry a display ID.
const (
	EntityProject     = "project"
	EntityRequirement = "requirement"
	EntityTestPlan    = "test_plan"
	EntityDocument    = "document"
	EntityComment     = "comment"
)

// IDFormat renders the human readable ID of one entity type, e.g. "PRJ-0007".
// Counter holds the last allocated sequence number.
type IDFormat struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EntityType string    `gorm:"uniqueIndex;size:50;not null" json:"entity_type"`
	Prefix     string    `gorm:"size:20;not null" json:"prefix"`
	Digits     int       `gorm:"not null" json:"digits"`
	Counter    int       `gorm:"not null;default:0" json:"counter"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (IDFormat) TableName() string { return "id_formats" }

// Format pads seq to Digits and prepends Prefix.
func (f IDFormat) Format(seq int) string {
	return fmt.Sprintf("%s%0*d", f.Prefix, f.Digits, seq)
}

// DefaultIDFormats are seeded on startup for entity types without a row.
func DefaultIDFormats() []IDFormat {
	return []IDFormat{
		{EntityType: EntityProject, Prefix: "PRJ-", Digits: 4},
		{EntityType: EntityRequirement, Prefix: "REQ-", Digits: 4},
		{EntityType: EntityTestPlan, Prefix: "TP-", Digits: 4},
		{EntityType: EntityDocument, Prefix: "DOC-", Digits: 4},
		{EntityType: EntityComment, Prefix: "CMT-", Digits: 4},
	}
}

// DefaultIDFormat returns the seeded format for entityType, used when the
// row is missing.
func DefaultIDFormat(entityType string) IDFormat {
	for _, f := range DefaultIDFormats() {
		if f.EntityType == entityType {
			return f
		}
	}
	return IDFormat{EntityType: entityType, Digits: 4}
}

// Sequenced is embedded by every entity that has a display ID.
type Sequenced struct {
	Seq       int    `gorm:"not null;default:0;index" json:"seq"`
	DisplayID string `gorm:"-" json:"display_id"`
}

func (s *Sequenced) GetSeq() int            { return s.Seq }
func (s *Sequenced) SetSeq(seq int)         { s.Seq = seq }
func (s *Sequenced) SetDisplayID(id string) { s.DisplayID = id }
