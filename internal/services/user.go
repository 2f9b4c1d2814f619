package services

import (
	"context"
	"errors"

	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/internal/search"
	"github.com/huangang/testdesk/internal/utils"
	"gorm.io/gorm"
)

// UserService is the admin-only account management.
type UserService struct {
	db   *gorm.DB
	auth *AuthService
}

func NewUserService(db *gorm.DB, auth *AuthService) *UserService {
	return &UserService{db: db, auth: auth}
}

type UserListRequest struct {
	search.Page
	Username string `form:"username"`
	Role     string `form:"role" binding:"omitempty,role"`
	AuthType string `form:"auth_type" binding:"omitempty,oneof=local ldap"`
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=100"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Email    string `json:"email" binding:"omitempty,email,max=255"`
	Name     string `json:"name" binding:"max=100"`
	Role     string `json:"role" binding:"required,role"`
	Country  string `json:"country" binding:"omitempty,country"`
	Timezone string `json:"timezone" binding:"omitempty,timezone"`
}

type UpdateUserRequest struct {
	Email    *string `json:"email" binding:"omitempty,email,max=255"`
	Name     *string `json:"name" binding:"omitempty,max=100"`
	Role     *string `json:"role" binding:"omitempty,role"`
	Country  *string `json:"country" binding:"omitempty,country"`
	Timezone *string `json:"timezone" binding:"omitempty,timezone"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password" binding:"omitempty,min=8,max=72"`
}

func (s *UserService) List(ctx context.Context, req *UserListRequest) ([]models.User, int64, error) {
	page := req.Page.Normalize()
	query := s.db.WithContext(ctx).Model(&models.User{})

	if req.Username != "" {
		query = query.Where("username LIKE ?", "%"+req.Username+"%")
	}
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}
	if req.AuthType != "" {
		query = query.Where("auth_type = ?", req.AuthType)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	if err := query.Order("id ASC").Offset(page.Skip()).Limit(page.Limit()).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *UserService) Create(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Unscoped().Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrConflict
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Username: req.Username,
		Password: hashed,
		Email:    req.Email,
		Name:     req.Name,
		Role:     req.Role,
		Country:  req.Country,
		Timezone: req.Timezone,
		AuthType: AuthTypeLocal,
		IsActive: true,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return &user, nil
}

// Update changes an account. Admins cannot edit themselves here, which keeps
// at least the acting admin in place.
func (s *UserService) Update(ctx context.Context, currentUserID, id uint, req *UpdateUserRequest) (*models.User, error) {
	if id == currentUserID {
		return nil, invalid("cannot modify your own account")
	}
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return nil, orNotFound(err, "user")
	}

	updates := map[string]interface{}{}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Role != nil {
		updates["role"] = *req.Role
	}
	if req.Country != nil {
		updates["country"] = *req.Country
	}
	if req.Timezone != nil {
		updates["timezone"] = *req.Timezone
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Password != nil {
		if user.AuthType != AuthTypeLocal {
			return nil, invalid("LDAP users have no local password")
		}
		hashed, err := utils.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		updates["password"] = hashed
	}
	if len(updates) == 0 {
		return nil, invalid("no fields to update")
	}

	if err := db.Model(&user).Updates(updates).Error; err != nil {
		return nil, err
	}
	if req.IsActive != nil && !*req.IsActive || req.Password != nil || req.Role != nil {
		if err := s.auth.RevokeAllForUser(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	if err := db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) Delete(ctx context.Context, currentUserID, id uint) error {
	if id == currentUserID {
		return invalid("cannot delete your own account")
	}
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return orNotFound(err, "user")
	}
	if err := db.Delete(&user).Error; err != nil {
		return err
	}
	return s.auth.RevokeAllForUser(ctx, user.ID)
}
