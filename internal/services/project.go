package services

import (
	"context"
	"time"

	"github.com/huangang/testdesk/internal/access"
	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/internal/search"
	"gorm.io/gorm"
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

type ProjectListRequest struct {
	search.Page
	Search string `form:"search" binding:"max=200"`
	Status *bool  `form:"status"`
}

type CreateProjectRequest struct {
	Title       string     `json:"title" binding:"required,max=200"`
	Description string     `json:"description" binding:"max=10000"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	IsActive    *bool      `json:"is_active"`
	OwnerID     *uint      `json:"owner_id"` // admins only; defaults to the caller
}

type UpdateProjectRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string    `json:"description" binding:"omitempty,max=10000"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	IsActive    *bool      `json:"is_active"`
}

// List is the role-scoped project search.
func (s *ProjectService) List(ctx context.Context, caller access.Caller, req *ProjectListRequest) (*search.Result[models.Project], error) {
	page := req.Page.Normalize()
	return search.Run[models.Project](ctx, s.db, search.Projects, caller, search.Params{
		Search: req.Search,
		Skip:   page.Skip(),
		Limit:  page.Limit(),
		Status: req.Status,
	})
}

// Get returns a project with its owner and members. Projects the caller
// cannot see are reported as not found.
func (s *ProjectService) Get(ctx context.Context, caller access.Caller, id uint) (*models.Project, error) {
	db := s.db.WithContext(ctx)

	var project models.Project
	if err := db.Preload("Owner").Preload("Members.User").First(&project, id).Error; err != nil {
		return nil, orNotFound(err, "project")
	}
	if !access.CanView(caller, project.UserID, memberships(project.Members)) {
		return nil, notFound("project")
	}
	if err := decorate(db, models.EntityProject, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *ProjectService) Create(ctx context.Context, caller access.Caller, req *CreateProjectRequest) (*models.Project, error) {
	if caller.Role == access.RoleTester {
		return nil, ErrForbidden
	}
	if err := checkDates(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	ownerID := caller.ID
	if req.OwnerID != nil && *req.OwnerID != caller.ID {
		if !caller.IsAdmin() {
			return nil, ErrForbidden
		}
		var owner models.User
		if err := db.First(&owner, *req.OwnerID).Error; err != nil {
			return nil, orNotFound(err, "owner")
		}
		if owner.Role == models.RoleTester {
			return nil, invalid("a tester cannot own a project")
		}
		ownerID = owner.ID
	}

	project := models.Project{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		IsActive:    req.IsActive == nil || *req.IsActive,
		UserID:      ownerID,
	}
	if err := createSequenced(db, models.EntityProject, &project); err != nil {
		return nil, err
	}
	return s.Get(ctx, caller, project.ID)
}

func (s *ProjectService) Update(ctx context.Context, caller access.Caller, id uint, req *UpdateProjectRequest) (*models.Project, error) {
	db := s.db.WithContext(ctx)

	project, err := s.manageable(db, caller, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	start, end := project.StartDate, project.EndDate
	if req.StartDate != nil {
		updates["start_date"] = *req.StartDate
		start = req.StartDate
	}
	if req.EndDate != nil {
		updates["end_date"] = *req.EndDate
		end = req.EndDate
	}
	if err := checkDates(start, end); err != nil {
		return nil, err
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := db.Model(project).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, caller, id)
}

// Delete soft-deletes the project. Its children disappear from every
// listing with it and are hard-deleted later by the purge job.
func (s *ProjectService) Delete(ctx context.Context, caller access.Caller, id uint) error {
	db := s.db.WithContext(ctx)

	project, err := s.manageable(db, caller, id)
	if err != nil {
		return err
	}
	return db.Delete(project).Error
}

// manageable loads a live project the caller may modify. Invisible projects
// are not found; visible ones the caller does not manage are forbidden.
func (s *ProjectService) manageable(db *gorm.DB, caller access.Caller, id uint) (*models.Project, error) {
	project, err := visibleProject(db, caller, id)
	if err != nil {
		return nil, err
	}
	if !access.CanManageProject(caller, project.UserID) {
		return nil, ErrForbidden
	}
	return project, nil
}

// visibleProject loads a live project through the SQL visibility scope.
func visibleProject(db *gorm.DB, caller access.Caller, id uint) (*models.Project, error) {
	var project models.Project
	if err := db.Scopes(access.ProjectScope(caller)).First(&project, id).Error; err != nil {
		return nil, orNotFound(err, "project")
	}
	return &project, nil
}

func memberships(members []models.ProjectMember) []access.Membership {
	out := make([]access.Membership, 0, len(members))
	for _, m := range members {
		out = append(out, access.Membership{UserID: m.UserID, Verified: m.IsVerified})
	}
	return out
}

func decorate(db *gorm.DB, entityType string, records ...search.Decorated) error {
	format, err := search.LoadFormat(db, entityType)
	if err != nil {
		return err
	}
	search.Decorate(format, records...)
	return nil
}

func checkDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return invalid("end_date must not be before start_date")
	}
	return nil
}
