// Package testutil opens throwaway databases and builds fixtures for tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/huangang/testdesk/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated and seeded in-memory SQLite database private to t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := models.SeedDefaultData(db); err != nil {
		t.Fatalf("seed: %v", err)
	}

	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func CreateUser(t testing.TB, db *gorm.DB, username, role string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Name:     username,
		Role:     role,
		AuthType: "local",
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

// CreateProject inserts a project owned by ownerID. seq doubles as the
// display sequence; createdAt controls the listing order.
func CreateProject(t testing.TB, db *gorm.DB, ownerID uint, title string, seq int, createdAt time.Time) *models.Project {
	t.Helper()
	project := &models.Project{
		Sequenced: models.Sequenced{Seq: seq},
		Title:     title,
		IsActive:  true,
		UserID:    ownerID,
		CreatedAt: createdAt,
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("create project %s: %v", title, err)
	}
	return project
}

// AddMember links userID to projectID with the given verification flag.
func AddMember(t testing.TB, db *gorm.DB, projectID, userID uint, role string, verified *bool) *models.ProjectMember {
	t.Helper()
	member := &models.ProjectMember{
		ProjectID:  projectID,
		UserID:     userID,
		Role:       role,
		IsVerified: verified,
	}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("add member: %v", err)
	}
	return member
}

func Bool(v bool) *bool { return &v }
