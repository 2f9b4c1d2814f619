package services

import (
	"context"

	"github.com/huangang/testdesk/internal/access"
	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/internal/search"
	"gorm.io/gorm"
)

type RequirementService struct {
	db *gorm.DB
}

func NewRequirementService(db *gorm.DB) *RequirementService {
	return &RequirementService{db: db}
}

type RequirementListRequest struct {
	ChildListRequest
	Status     string `form:"status" binding:"omitempty,oneof=open in_progress done"`
	AssignedTo *uint  `form:"assigned_to"`
}

type CreateRequirementRequest struct {
	Title       string `json:"title" binding:"required,max=256"`
	Description string `json:"description" binding:"max=20000"`
	Status      string `json:"status" binding:"omitempty,oneof=open in_progress done"`
	AssignedTo  *uint  `json:"assigned_to"`
}

type UpdateRequirementRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=256"`
	Description *string `json:"description" binding:"omitempty,max=20000"`
	Status      *string `json:"status" binding:"omitempty,oneof=open in_progress done"`
	AssignedTo  *uint   `json:"assigned_to"` // 0 unassigns
}

func (s *RequirementService) List(ctx context.Context, caller access.Caller, projectID uint, req *RequirementListRequest) (*search.Result[models.Requirement], error) {
	if _, err := visibleProject(s.db.WithContext(ctx), caller, projectID); err != nil {
		return nil, err
	}

	target := search.Requirements.InProject(projectID)
	if req.Status != "" {
		target = target.Where("requirements.status = ?", req.Status)
	}
	if req.AssignedTo != nil {
		target = target.Where("requirements.assigned_to = ?", *req.AssignedTo)
	}
	return search.Run[models.Requirement](ctx, s.db, target, caller, req.params())
}

func (s *RequirementService) Get(ctx context.Context, caller access.Caller, id uint) (*models.Requirement, error) {
	db := s.db.WithContext(ctx)

	requirement, err := loadChild[models.Requirement](db, caller, "requirements", id, "requirement", "Creator", "Assignee")
	if err != nil {
		return nil, err
	}
	if err := decorate(db, models.EntityRequirement, requirement); err != nil {
		return nil, err
	}
	return requirement, nil
}

func (s *RequirementService) Create(ctx context.Context, caller access.Caller, projectID uint, req *CreateRequirementRequest) (*models.Requirement, error) {
	db := s.db.WithContext(ctx)

	if _, err := visibleProject(db, caller, projectID); err != nil {
		return nil, err
	}
	if req.AssignedTo != nil {
		if err := checkAssignee(db, projectID, *req.AssignedTo); err != nil {
			return nil, err
		}
	}

	requirement := models.Requirement{
		ProjectID:   projectID,
		UserID:      caller.ID,
		AssignedTo:  req.AssignedTo,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	}
	if requirement.Status == "" {
		requirement.Status = models.RequirementOpen
	}
	if err := createSequenced(db, models.EntityRequirement, &requirement); err != nil {
		return nil, err
	}
	return s.Get(ctx, caller, requirement.ID)
}

func (s *RequirementService) Update(ctx context.Context, caller access.Caller, id uint, req *UpdateRequirementRequest) (*models.Requirement, error) {
	db := s.db.WithContext(ctx)

	requirement, err := loadChild[models.Requirement](db, caller, "requirements", id, "requirement")
	if err != nil {
		return nil, err
	}
	if err := canModifyChild(db, caller, requirement.ProjectID, requirement.UserID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if err := assignmentUpdate(db, requirement.ProjectID, req.AssignedTo, updates); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := db.Model(requirement).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, caller, id)
}

func (s *RequirementService) Delete(ctx context.Context, caller access.Caller, id uint) error {
	db := s.db.WithContext(ctx)

	requirement, err := loadChild[models.Requirement](db, caller, "requirements", id, "requirement")
	if err != nil {
		return err
	}
	if err := canModifyChild(db, caller, requirement.ProjectID, requirement.UserID); err != nil {
		return err
	}
	return db.Delete(requirement).Error
}
