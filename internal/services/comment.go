package services

import (
	"context"

	"github.com/huangang/testdesk/internal/access"
	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/internal/search"
	"gorm.io/gorm"
)

type CommentService struct {
	db *gorm.DB
}

func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db}
}

type CommentListRequest struct {
	ChildListRequest
	EntityType string `form:"entity_type" binding:"omitempty,oneof=requirement test_plan document"`
	EntityID   *uint  `form:"entity_id"`
}

type CreateCommentRequest struct {
	Content    string `json:"content" binding:"required,max=10000"`
	EntityType string `json:"entity_type" binding:"omitempty,oneof=requirement test_plan document"`
	EntityID   *uint  `json:"entity_id" binding:"required_with=EntityType"`
}

type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required,max=10000"`
}

// commentTables maps the entity types a comment can point at to their tables.
var commentTables = map[string]string{
	models.EntityRequirement: "requirements",
	models.EntityTestPlan:    "test_plans",
	models.EntityDocument:    "documents",
}

func (s *CommentService) List(ctx context.Context, caller access.Caller, projectID uint, req *CommentListRequest) (*search.Result[models.Comment], error) {
	if _, err := visibleProject(s.db.WithContext(ctx), caller, projectID); err != nil {
		return nil, err
	}

	target := search.Comments.InProject(projectID)
	if req.EntityType != "" {
		target = target.Where("comments.entity_type = ?", req.EntityType)
		if req.EntityID != nil {
			target = target.Where("comments.entity_id = ?", *req.EntityID)
		}
	}
	return search.Run[models.Comment](ctx, s.db, target, caller, req.params())
}

func (s *CommentService) Create(ctx context.Context, caller access.Caller, projectID uint, req *CreateCommentRequest) (*models.Comment, error) {
	db := s.db.WithContext(ctx)

	if _, err := visibleProject(db, caller, projectID); err != nil {
		return nil, err
	}

	comment := models.Comment{
		ProjectID: projectID,
		UserID:    caller.ID,
		Content:   req.Content,
	}
	if req.EntityType != "" {
		if req.EntityID == nil {
			return nil, invalid("entity_id is required with entity_type")
		}
		if err := s.checkSubject(db, projectID, req.EntityType, *req.EntityID); err != nil {
			return nil, err
		}
		comment.EntityType = req.EntityType
		comment.EntityID = req.EntityID
	}

	if err := createSequenced(db, models.EntityComment, &comment); err != nil {
		return nil, err
	}
	return s.get(db, caller, comment.ID)
}

// Update edits the content. Only the author or an admin may do this.
func (s *CommentService) Update(ctx context.Context, caller access.Caller, id uint, req *UpdateCommentRequest) (*models.Comment, error) {
	db := s.db.WithContext(ctx)

	comment, err := loadChild[models.Comment](db, caller, "comments", id, "comment")
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && comment.UserID != caller.ID {
		return nil, ErrForbidden
	}

	if err := db.Model(comment).Update("content", req.Content).Error; err != nil {
		return nil, err
	}
	return s.get(db, caller, id)
}

// Delete also lets the project owner moderate.
func (s *CommentService) Delete(ctx context.Context, caller access.Caller, id uint) error {
	db := s.db.WithContext(ctx)

	comment, err := loadChild[models.Comment](db, caller, "comments", id, "comment")
	if err != nil {
		return err
	}
	if err := canModifyChild(db, caller, comment.ProjectID, comment.UserID); err != nil {
		return err
	}
	return db.Delete(comment).Error
}

func (s *CommentService) get(db *gorm.DB, caller access.Caller, id uint) (*models.Comment, error) {
	comment, err := loadChild[models.Comment](db, caller, "comments", id, "comment", "Author")
	if err != nil {
		return nil, err
	}
	if err := decorate(db, models.EntityComment, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// checkSubject verifies the commented entity is live and in projectID.
func (s *CommentService) checkSubject(db *gorm.DB, projectID uint, entityType string, entityID uint) error {
	table, ok := commentTables[entityType]
	if !ok {
		return invalid("comments cannot target %s", entityType)
	}

	var count int64
	err := db.Table(table).
		Where("id = ? AND project_id = ? AND deleted_at IS NULL", entityID, projectID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return notFound(entityType)
	}
	return nil
}
