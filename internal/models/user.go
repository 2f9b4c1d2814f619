package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles. Visibility of projects and their children depends on these.
const (
	RoleAdmin  = "admin"
	RoleClient = "client"
	RoleTester = "tester"
)

// User represents an account of the workspace.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password  string         `gorm:"size:255" json:"-"` // Hashed password, empty for LDAP users
	Email     string         `gorm:"size:255;index" json:"email"`
	Name      string         `gorm:"size:100" json:"name"`
	Role      string         `gorm:"size:20;not null;default:tester;index" json:"role"` // admin, client, tester
	Country   string         `gorm:"size:2" json:"country"`                             // ISO 3166-1 alpha-2
	Timezone  string         `gorm:"size:64" json:"timezone"`                           // IANA name
	AuthType  string         `gorm:"size:20;default:local" json:"auth_type"`            // local, ldap
	IsActive  bool           `gorm:"not null" json:"is_active"`
	LastLogin *time.Time     `json:"last_login"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

// UserBrief is the public projection embedded in other payloads.
type UserBrief struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func (u *User) Brief() *UserBrief {
	if u == nil {
		return nil
	}
	return &UserBrief{ID: u.ID, Username: u.Username, Name: u.Name, Role: u.Role}
}
