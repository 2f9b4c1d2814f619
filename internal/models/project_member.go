package models

import "time"

// ProjectMember links a user to a project. IsVerified is three-valued:
// nil (never asked), false (invited, not accepted) and true (accepted).
// Only an explicit false hides the project from the member.
type ProjectMember struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ProjectID  uint       `gorm:"uniqueIndex:idx_project_user;not null" json:"project_id"`
	UserID     uint       `gorm:"uniqueIndex:idx_project_user;index;not null" json:"user_id"`
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role       string     `gorm:"size:20;not null" json:"role"` // client, tester
	IsVerified *bool      `json:"is_verified"`
	VerifiedAt *time.Time `json:"verified_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (ProjectMember) TableName() string { return "project_members" }

// Pending reports whether the member was invited but has not accepted yet.
func (m ProjectMember) Pending() bool {
	return m.IsVerified != nil && !*m.IsVerified
}
