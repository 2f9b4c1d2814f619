package services

import (
	"github.com/huangang/testdesk/internal/access"
	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/internal/search"
	"gorm.io/gorm"
)

// ChildListRequest is the query accepted by every per-project listing.
type ChildListRequest struct {
	search.Page
	Search string `form:"search" binding:"max=200"`
}

func (r *ChildListRequest) params() search.Params {
	page := r.Page.Normalize()
	return search.Params{Search: r.Search, Skip: page.Skip(), Limit: page.Limit()}
}

// loadChild fetches a live row of table whose project caller can see.
func loadChild[T any](db *gorm.DB, caller access.Caller, table string, id uint, what string, preloads ...string) (*T, error) {
	q := db.Scopes(access.ChildScope(caller, table))
	for _, p := range preloads {
		q = q.Preload(p)
	}

	var record T
	if err := q.Where(table+".id = ?", id).First(&record).Error; err != nil {
		return nil, orNotFound(err, what)
	}
	return &record, nil
}

func projectOwner(db *gorm.DB, projectID uint) (uint, error) {
	var project models.Project
	if err := db.Select("id", "user_id").First(&project, projectID).Error; err != nil {
		return 0, orNotFound(err, "project")
	}
	return project.UserID, nil
}

// canModifyChild applies access.CanModify to a child row of projectID.
func canModifyChild(db *gorm.DB, caller access.Caller, projectID, authorID uint) error {
	ownerID, err := projectOwner(db, projectID)
	if err != nil {
		return err
	}
	if !access.CanModify(caller, authorID, ownerID) {
		return ErrForbidden
	}
	return nil
}

// createSequenced allocates the display sequence of record and inserts it
// in one transaction.
func createSequenced(db *gorm.DB, entityType string, record interface{ SetSeq(int) }) error {
	return db.Transaction(func(tx *gorm.DB) error {
		seq, err := NextSeq(tx, entityType)
		if err != nil {
			return err
		}
		record.SetSeq(seq)
		return tx.Create(record).Error
	})
}

// checkAssignee verifies userID is an active user who can see projectID.
func checkAssignee(db *gorm.DB, projectID, userID uint) error {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return orNotFound(err, "assignee")
	}
	if !user.IsActive {
		return invalid("assignee %s is disabled", user.Username)
	}
	role, err := access.ParseRole(user.Role)
	if err != nil {
		return invalid("assignee has no usable role")
	}

	var project models.Project
	if err := db.Preload("Members").First(&project, projectID).Error; err != nil {
		return orNotFound(err, "project")
	}
	if !access.CanView(access.Caller{ID: user.ID, Role: role}, project.UserID, memberships(project.Members)) {
		return invalid("assignee %s cannot see this project", user.Username)
	}
	return nil
}

// assignmentUpdate turns a requested assignee into a column value; 0
// unassigns.
func assignmentUpdate(db *gorm.DB, projectID uint, assignedTo *uint, updates map[string]interface{}) error {
	if assignedTo == nil {
		return nil
	}
	if *assignedTo == 0 {
		updates["assigned_to"] = nil
		return nil
	}
	if err := checkAssignee(db, projectID, *assignedTo); err != nil {
		return err
	}
	updates["assigned_to"] = *assignedTo
	return nil
}
