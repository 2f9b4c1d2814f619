package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/huangang/testdesk/internal/config"
	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/internal/utils"
	"gorm.io/gorm"
)

const (
	AuthTypeLocal = "local"
	AuthTypeLDAP  = "ldap"
)

type AuthService struct {
	db          *gorm.DB
	ldapService *LDAPService
	jwtConfig   *config.JWTConfig
	now         func() time.Time
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig, ldapService *LDAPService) *AuthService {
	return &AuthService{
		db:          db,
		ldapService: ldapService,
		jwtConfig:   jwtCfg,
		now:         time.Now,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	AuthType string `json:"auth_type" binding:"omitempty,oneof=local ldap"`
}

type LoginResult struct {
	AccessToken     string
	AccessExpireAt  time.Time
	RefreshToken    string
	RefreshExpireAt time.Time
	User            *models.User
}

type RefreshResult struct {
	AccessToken     string
	AccessExpireAt  time.Time
	RefreshToken    string
	RefreshExpireAt time.Time
}

// Login authenticates a user and issues an access token plus a refresh token.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, clientIP, userAgent string) (*LoginResult, error) {
	db := s.db.WithContext(ctx)

	var user *models.User
	var err error

	switch req.AuthType {
	case "", AuthTypeLocal:
		user, err = s.localAuth(db, req.Username, req.Password)
	case AuthTypeLDAP:
		user, err = s.ldapAuth(db, req.Username, req.Password)
	default:
		return nil, invalid("auth_type must be local or ldap")
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, s.accessHours())
	if err != nil {
		return nil, err
	}

	refreshToken, refreshHash, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	refreshRecord := models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   refreshHash,
		ExpiresAt:   now.Add(time.Duration(s.refreshHours()) * time.Hour),
		CreatedByIP: clientIP,
		UserAgent:   truncate(userAgent, 255),
	}
	if err := db.Create(&refreshRecord).Error; err != nil {
		return nil, err
	}

	if err := db.Model(user).Update("last_login", now).Error; err != nil {
		return nil, err
	}
	user.LastLogin = &now

	return &LoginResult{
		AccessToken:     token,
		AccessExpireAt:  now.Add(time.Duration(s.accessHours()) * time.Hour),
		RefreshToken:    refreshToken,
		RefreshExpireAt: refreshRecord.ExpiresAt,
		User:            user,
	}, nil
}

// Refresh rotates a refresh token: the presented one is revoked and linked
// to its replacement.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, clientIP, userAgent string) (*RefreshResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidToken
	}
	db := s.db.WithContext(ctx)
	now := s.now()

	var stored models.RefreshToken
	if err := db.Where("token_hash = ?", hashRefreshToken(refreshToken)).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !stored.Usable(now) {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := db.First(&user, stored.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	accessToken, err := utils.GenerateToken(user.ID, user.Username, user.Role, s.accessHours())
	if err != nil {
		return nil, err
	}
	newToken, newHash, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	replacement := models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   newHash,
		ExpiresAt:   now.Add(time.Duration(s.refreshHours()) * time.Hour),
		CreatedByIP: clientIP,
		UserAgent:   truncate(userAgent, 255),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&replacement).Error; err != nil {
			return err
		}
		// Guard against two concurrent refreshes of the same token.
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", stored.ID).
			Updates(map[string]interface{}{
				"revoked_at":           now,
				"replaced_by_token_id": replacement.ID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidToken
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &RefreshResult{
		AccessToken:     accessToken,
		AccessExpireAt:  now.Add(time.Duration(s.accessHours()) * time.Hour),
		RefreshToken:    newToken,
		RefreshExpireAt: replacement.ExpiresAt,
	}, nil
}

func (s *AuthService) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hashRefreshToken(refreshToken)).
		Update("revoked_at", s.now()).Error
}

// RevokeAllForUser is used when an account is disabled or deleted.
func (s *AuthService) RevokeAllForUser(ctx context.Context, userID uint) error {
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", s.now()).Error
}

func (s *AuthService) accessHours() int {
	if s.jwtConfig.ExpireHour > 0 {
		return s.jwtConfig.ExpireHour
	}
	return 24
}

func (s *AuthService) refreshHours() int {
	if s.jwtConfig.RefreshExpireHour > 0 {
		return s.jwtConfig.RefreshExpireHour
	}
	return 720
}

func generateRefreshToken() (token string, tokenHash string, err error) {
	randomBytes := make([]byte, 32)
	if _, err = rand.Read(randomBytes); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(randomBytes)
	return token, hashRefreshToken(token), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *AuthService) localAuth(db *gorm.DB, username, password string) (*models.User, error) {
	var user models.User
	if err := db.Where("username = ? AND auth_type = ?", username, AuthTypeLocal).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	return &user, nil
}

// ldapAuth provisions unknown directory users as testers.
func (s *AuthService) ldapAuth(db *gorm.DB, username, password string) (*models.User, error) {
	if s.ldapService == nil || !s.ldapService.IsEnabled() {
		return nil, invalid("LDAP login is not enabled")
	}
	ldapUser, err := s.ldapService.Authenticate(username, password)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = db.Where("username = ? AND auth_type = ?", ldapUser.Username, AuthTypeLDAP).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Username: ldapUser.Username,
			Email:    ldapUser.Email,
			Name:     ldapUser.Name,
			Role:     models.RoleTester,
			AuthType: AuthTypeLDAP,
			IsActive: true,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil
	case err != nil:
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	if err := db.Model(&user).Updates(map[string]interface{}{"email": ldapUser.Email, "name": ldapUser.Name}).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, orNotFound(err, "user")
	}
	return &user, nil
}

// CreateAdmin creates a local admin account. When ifMissing is set and an
// admin already exists, nothing happens.
func (s *AuthService) CreateAdmin(ctx context.Context, username, password string, ifMissing bool) (*models.User, error) {
	db := s.db.WithContext(ctx)
	if ifMissing {
		var count int64
		if err := db.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, nil
		}
	}

	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	admin := models.User{
		Username: username,
		Password: hashedPassword,
		Name:     "Administrator",
		Role:     models.RoleAdmin,
		AuthType: AuthTypeLocal,
		IsActive: true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}
	return &admin, nil
}

func (s *AuthService) IsLDAPEnabled() bool {
	return s.ldapService != nil && s.ldapService.IsEnabled()
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uint, req *ChangePasswordRequest) error {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return orNotFound(err, "user")
	}
	if user.AuthType != AuthTypeLocal {
		return invalid("LDAP users cannot change password here")
	}
	if !utils.CheckPassword(req.OldPassword, user.Password) {
		return invalid("incorrect old password")
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	return db.Model(&user).Update("password", hashedPassword).Error
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
