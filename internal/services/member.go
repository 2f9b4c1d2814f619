package services

import (
	"context"
	"errors"
	"time"

	"github.com/huangang/testdesk/internal/access"
	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/pkg/logger"
	"gorm.io/gorm"
)

// MemberService manages who belongs to a project. Testers join unverified
// and must accept the invitation before the project becomes visible to them.
type MemberService struct {
	db    *gorm.DB
	queue TaskQueue
	now   func() time.Time
}

func NewMemberService(db *gorm.DB, queue TaskQueue) *MemberService {
	return &MemberService{db: db, queue: queue, now: time.Now}
}

type AddMemberRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

type UpdateMemberRequest struct {
	// nil clears the flag, which leaves the member visible.
	IsVerified *bool `json:"is_verified"`
}

// List returns the members of a project the caller can see.
func (s *MemberService) List(ctx context.Context, caller access.Caller, projectID uint) ([]models.ProjectMember, error) {
	db := s.db.WithContext(ctx)
	if _, err := visibleProject(db, caller, projectID); err != nil {
		return nil, err
	}

	var members []models.ProjectMember
	if err := db.Preload("User").Where("project_id = ?", projectID).Order("id").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// Add makes a client or tester a member. Testers start unverified and an
// invitation is queued for them.
func (s *MemberService) Add(ctx context.Context, caller access.Caller, projectID uint, req *AddMemberRequest) (*models.ProjectMember, error) {
	db := s.db.WithContext(ctx)

	project, err := visibleProject(db, caller, projectID)
	if err != nil {
		return nil, err
	}
	if !access.CanManageProject(caller, project.UserID) {
		return nil, ErrForbidden
	}

	var user models.User
	if err := db.First(&user, req.UserID).Error; err != nil {
		return nil, orNotFound(err, "user")
	}
	if !user.IsActive {
		return nil, invalid("user %s is disabled", user.Username)
	}
	if user.ID == project.UserID {
		return nil, invalid("the owner is already part of the project")
	}

	member := models.ProjectMember{
		ProjectID: projectID,
		UserID:    user.ID,
		Role:      user.Role,
	}
	switch user.Role {
	case models.RoleTester:
		pending := false
		member.IsVerified = &pending
	case models.RoleClient:
	default:
		return nil, invalid("only clients and testers can be members")
	}

	var count int64
	if err := db.Model(&models.ProjectMember{}).Where("project_id = ? AND user_id = ?", projectID, user.ID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrConflict
	}
	if err := db.Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
		return nil, err
	}
	member.User = &user

	if member.Pending() && s.queue != nil {
		task := &InvitationTask{MemberID: member.ID, ProjectID: projectID, UserID: user.ID, InvitedBy: caller.ID}
		if err := s.queue.Enqueue(task); err != nil {
			// The membership stands; the tester can still verify without the mail.
			logger.Warn().Err(err).Uint("member_id", member.ID).Msg("failed to enqueue invitation")
		}
	}
	return &member, nil
}

// Update lets the project manager set or clear the verification flag.
func (s *MemberService) Update(ctx context.Context, caller access.Caller, projectID, memberID uint, req *UpdateMemberRequest) (*models.ProjectMember, error) {
	db := s.db.WithContext(ctx)

	member, err := s.managedMember(db, caller, projectID, memberID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"is_verified": req.IsVerified, "verified_at": nil}
	if req.IsVerified != nil && *req.IsVerified {
		updates["verified_at"] = s.now()
	}
	if err := db.Model(member).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("User").First(member, member.ID).Error; err != nil {
		return nil, err
	}
	return member, nil
}

func (s *MemberService) Remove(ctx context.Context, caller access.Caller, projectID, memberID uint) error {
	db := s.db.WithContext(ctx)

	member, err := s.managedMember(db, caller, projectID, memberID)
	if err != nil {
		return err
	}
	return db.Delete(member).Error
}

// Verify accepts the caller's pending invitation. The project is still
// invisible to the caller at this point, so it is looked up directly.
func (s *MemberService) Verify(ctx context.Context, caller access.Caller, projectID uint) (*models.ProjectMember, error) {
	db := s.db.WithContext(ctx)

	var member models.ProjectMember
	err := db.Joins("JOIN projects ON projects.id = project_members.project_id AND projects.deleted_at IS NULL").
		Where("project_members.project_id = ? AND project_members.user_id = ?", projectID, caller.ID).
		First(&member).Error
	if err != nil {
		return nil, orNotFound(err, "membership")
	}
	if member.IsVerified != nil && *member.IsVerified {
		return &member, nil
	}

	now := s.now()
	verified := true
	if err := db.Model(&member).Updates(map[string]interface{}{"is_verified": true, "verified_at": now}).Error; err != nil {
		return nil, err
	}
	member.IsVerified = &verified
	member.VerifiedAt = &now
	return &member, nil
}

func (s *MemberService) managedMember(db *gorm.DB, caller access.Caller, projectID, memberID uint) (*models.ProjectMember, error) {
	project, err := visibleProject(db, caller, projectID)
	if err != nil {
		return nil, err
	}
	if !access.CanManageProject(caller, project.UserID) {
		return nil, ErrForbidden
	}

	var member models.ProjectMember
	if err := db.Where("id = ? AND project_id = ?", memberID, projectID).First(&member).Error; err != nil {
		return nil, orNotFound(err, "member")
	}
	return &member, nil
}
