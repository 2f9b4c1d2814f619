// Package access decides which projects, and therefore which project
// children, a caller may see. The same rule is exposed twice: CanView for
// records already in memory and the Scope helpers for SQL queries.
package access

import (
	"fmt"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
	RoleTester Role = "tester"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleClient, RoleTester:
		return true
	}
	return false
}

// ParseRole accepts only the three known roles.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Caller is the resolved identity of a request.
type Caller struct {
	ID   uint
	Role Role
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

// Membership is the part of a project member row the rule looks at.
type Membership struct {
	UserID   uint
	Verified *bool
}

// counts reports whether the membership grants visibility: a flag that is
// absent or true counts, an explicit false does not.
func (m Membership) counts() bool {
	return m.Verified == nil || *m.Verified
}

func mustBeValid(r Role) {
	if !r.Valid() {
		panic(fmt.Sprintf("access: invalid role %q", r))
	}
}

// CanView reports whether caller may see a project owned by ownerID with
// the given members. An invalid role panics.
func CanView(caller Caller, ownerID uint, members []Membership) bool {
	mustBeValid(caller.Role)

	switch caller.Role {
	case RoleAdmin:
		return true
	case RoleClient:
		if ownerID == caller.ID {
			return true
		}
	}
	for _, m := range members {
		if m.UserID == caller.ID && m.counts() {
			return true
		}
	}
	return false
}

// CanManageProject reports whether caller may edit a project or its
// membership: admins and the owner.
func CanManageProject(caller Caller, ownerID uint) bool {
	mustBeValid(caller.Role)
	return caller.IsAdmin() || ownerID == caller.ID
}

// CanModify reports whether caller may edit or delete a child record
// created by authorID inside a project owned by projectOwnerID.
func CanModify(caller Caller, authorID, projectOwnerID uint) bool {
	mustBeValid(caller.Role)
	return caller.IsAdmin() || authorID == caller.ID || projectOwnerID == caller.ID
}

const memberClause = "EXISTS (SELECT 1 FROM project_members pm WHERE pm.project_id = projects.id" +
	" AND pm.user_id = ? AND (pm.is_verified IS NULL OR pm.is_verified <> ?))"

// ProjectScope restricts a query on the projects table to rows caller can
// see. Soft-delete filtering is left to GORM.
func ProjectScope(caller Caller) func(*gorm.DB) *gorm.DB {
	mustBeValid(caller.Role)

	return func(db *gorm.DB) *gorm.DB {
		switch caller.Role {
		case RoleClient:
			return db.Where("(projects.user_id = ? OR "+memberClause+")", caller.ID, caller.ID, false)
		case RoleTester:
			return db.Where(memberClause, caller.ID, false)
		}
		return db
	}
}

// VisibleProjectIDs is a subquery of the live project ids caller can see.
func VisibleProjectIDs(db *gorm.DB, caller Caller) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Table("projects").
		Select("projects.id").
		Where("projects.deleted_at IS NULL").
		Scopes(ProjectScope(caller))
}

// ChildScope restricts a query on a table with a project_id column to rows
// whose project is live and visible to caller. Admins still lose the
// children of deleted projects.
func ChildScope(caller Caller, table string) func(*gorm.DB) *gorm.DB {
	mustBeValid(caller.Role)

	return func(db *gorm.DB) *gorm.DB {
		return db.Where(table+".project_id IN (?)", VisibleProjectIDs(db, caller))
	}
}
