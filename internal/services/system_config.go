package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/huangang/testdesk/internal/config"
	"github.com/huangang/testdesk/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	configGroupPurge = "purge"

	keyRecordRetentionDays = "purge_retention_days"
	keyLogRetentionDays    = "log_retention_days"
)

type SystemConfigService struct {
	db *gorm.DB
}

func NewSystemConfigService(db *gorm.DB) *SystemConfigService {
	return &SystemConfigService{db: db}
}

func (s *SystemConfigService) Get(ctx context.Context, key string) (string, error) {
	var cfg models.SystemConfig
	if err := s.db.WithContext(ctx).Where("config_key = ?", key).First(&cfg).Error; err != nil {
		return "", orNotFound(err, "setting")
	}
	return cfg.Value, nil
}

// GetInt returns the stored integer, or def when the key is unset or not a
// number.
func (s *SystemConfigService) GetInt(ctx context.Context, key string, def int) (int, error) {
	value, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def, nil
	}
	return n, nil
}

// Set upserts one setting.
func (s *SystemConfigService) Set(ctx context.Context, group, key, typ, value string) error {
	cfg := models.SystemConfig{Key: key, Value: value, Type: typ, Group: group}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "config_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "type", "config_group", "updated_at"}),
	}).Create(&cfg).Error
}

func (s *SystemConfigService) GetByGroup(ctx context.Context, group string) ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	if err := s.db.WithContext(ctx).Where("config_group = ?", group).Order("config_key").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// RetentionSettings controls the purge job. Zero disables that half.
type RetentionSettings struct {
	RecordDays int `json:"record_days" binding:"min=0,max=3650"`
	LogDays    int `json:"log_days" binding:"min=0,max=3650"`
}

// Retention returns the admin overrides, falling back to the file config.
func (s *SystemConfigService) Retention(ctx context.Context, defaults *config.PurgeConfig) (*RetentionSettings, error) {
	records, err := s.GetInt(ctx, keyRecordRetentionDays, defaults.RetentionDays)
	if err != nil {
		return nil, err
	}
	logs, err := s.GetInt(ctx, keyLogRetentionDays, defaults.LogRetentionDays)
	if err != nil {
		return nil, err
	}
	return &RetentionSettings{RecordDays: records, LogDays: logs}, nil
}

func (s *SystemConfigService) SetRetention(ctx context.Context, settings *RetentionSettings) error {
	if settings.RecordDays < 0 || settings.LogDays < 0 {
		return invalid("retention days cannot be negative")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txSvc := &SystemConfigService{db: tx}
		if err := txSvc.Set(ctx, configGroupPurge, keyRecordRetentionDays, "int", strconv.Itoa(settings.RecordDays)); err != nil {
			return err
		}
		return txSvc.Set(ctx, configGroupPurge, keyLogRetentionDays, "int", strconv.Itoa(settings.LogDays))
	})
}
