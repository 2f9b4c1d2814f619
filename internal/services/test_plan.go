package services

import (
	"context"

	"github.com/huangang/testdesk/internal/access"
	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/internal/search"
	"gorm.io/gorm"
)

type TestPlanService struct {
	db *gorm.DB
}

func NewTestPlanService(db *gorm.DB) *TestPlanService {
	return &TestPlanService{db: db}
}

type TestPlanListRequest struct {
	ChildListRequest
	AssignedTo *uint `form:"assigned_to"`
}

type CreateTestPlanRequest struct {
	Title       string `json:"title" binding:"required,max=256"`
	Description string `json:"description" binding:"max=20000"`
	AssignedTo  *uint  `json:"assigned_to"`
}

type UpdateTestPlanRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=256"`
	Description *string `json:"description" binding:"omitempty,max=20000"`
	AssignedTo  *uint   `json:"assigned_to"`
}

func (s *TestPlanService) List(ctx context.Context, caller access.Caller, projectID uint, req *TestPlanListRequest) (*search.Result[models.TestPlan], error) {
	if _, err := visibleProject(s.db.WithContext(ctx), caller, projectID); err != nil {
		return nil, err
	}

	target := search.TestPlans.InProject(projectID)
	if req.AssignedTo != nil {
		target = target.Where("test_plans.assigned_to = ?", *req.AssignedTo)
	}
	return search.Run[models.TestPlan](ctx, s.db, target, caller, req.params())
}

func (s *TestPlanService) Get(ctx context.Context, caller access.Caller, id uint) (*models.TestPlan, error) {
	db := s.db.WithContext(ctx)

	plan, err := loadChild[models.TestPlan](db, caller, "test_plans", id, "test plan", "Creator", "Assignee")
	if err != nil {
		return nil, err
	}
	if err := decorate(db, models.EntityTestPlan, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *TestPlanService) Create(ctx context.Context, caller access.Caller, projectID uint, req *CreateTestPlanRequest) (*models.TestPlan, error) {
	db := s.db.WithContext(ctx)

	if _, err := visibleProject(db, caller, projectID); err != nil {
		return nil, err
	}
	if req.AssignedTo != nil {
		if err := checkAssignee(db, projectID, *req.AssignedTo); err != nil {
			return nil, err
		}
	}

	plan := models.TestPlan{
		ProjectID:   projectID,
		UserID:      caller.ID,
		AssignedTo:  req.AssignedTo,
		Title:       req.Title,
		Description: req.Description,
	}
	if err := createSequenced(db, models.EntityTestPlan, &plan); err != nil {
		return nil, err
	}
	return s.Get(ctx, caller, plan.ID)
}

func (s *TestPlanService) Update(ctx context.Context, caller access.Caller, id uint, req *UpdateTestPlanRequest) (*models.TestPlan, error) {
	db := s.db.WithContext(ctx)

	plan, err := loadChild[models.TestPlan](db, caller, "test_plans", id, "test plan")
	if err != nil {
		return nil, err
	}
	if err := canModifyChild(db, caller, plan.ProjectID, plan.UserID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if err := assignmentUpdate(db, plan.ProjectID, req.AssignedTo, updates); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := db.Model(plan).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, caller, id)
}

func (s *TestPlanService) Delete(ctx context.Context, caller access.Caller, id uint) error {
	db := s.db.WithContext(ctx)

	plan, err := loadChild[models.TestPlan](db, caller, "test_plans", id, "test plan")
	if err != nil {
		return err
	}
	if err := canModifyChild(db, caller, plan.ProjectID, plan.UserID); err != nil {
		return err
	}
	return db.Delete(plan).Error
}
