package services

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/huangang/testdesk/internal/config"
	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/internal/storage"
	"github.com/huangang/testdesk/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const purgeLockName = "purge"

// PurgeReport counts the rows removed by one run.
type PurgeReport struct {
	Projects     int64 `json:"projects"`
	Members      int64 `json:"members"`
	Requirements int64 `json:"requirements"`
	TestPlans    int64 `json:"test_plans"`
	Documents    int64 `json:"documents"`
	Comments     int64 `json:"comments"`
	Logs         int64 `json:"logs"`
}

// PurgeService hard-deletes records that have been soft-deleted for longer
// than the retention period, together with the children of such projects.
type PurgeService struct {
	db       *gorm.DB
	store    storage.Store
	cfg      *config.PurgeConfig
	logs     *SystemLogService
	settings *SystemConfigService
	now      func() time.Time
	hostname string

	cronScheduler *cron.Cron
}

func NewPurgeService(db *gorm.DB, store storage.Store, cfg *config.PurgeConfig) *PurgeService {
	host, _ := os.Hostname()
	return &PurgeService{
		db:       db,
		store:    store,
		cfg:      cfg,
		logs:     NewSystemLogService(db),
		settings: NewSystemConfigService(db),
		now:      time.Now,
		hostname: host,
	}
}

func (s *PurgeService) StartScheduler() error {
	if !s.cfg.Enabled {
		logger.Infof("[Purge] Scheduler disabled")
		return nil
	}

	s.cronScheduler = cron.New()
	if _, err := s.cronScheduler.AddFunc(s.cfg.Schedule, s.runScheduled); err != nil {
		return err
	}
	s.cronScheduler.Start()
	logger.Infof("[Purge] Scheduled (cron: %s, retention: %d days)", s.cfg.Schedule, s.cfg.RetentionDays)
	return nil
}

func (s *PurgeService) StopScheduler() {
	if s.cronScheduler != nil {
		<-s.cronScheduler.Stop().Done()
	}
}

func (s *PurgeService) runScheduled() {
	ctx := context.Background()
	now := s.now()

	acquired, err := s.acquireLock(ctx, now)
	if err != nil {
		logger.Error().Err(err).Msg("purge lock failed")
		return
	}
	if !acquired {
		logger.Debug().Msg("purge already ran for this slot elsewhere")
		return
	}

	report, err := s.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("purge failed")
		LogError("purge", "run", err.Error(), nil, "", "", nil)
		return
	}
	logger.Info().Interface("report", report).Msg("purge finished")
	LogInfo("purge", "run", "purge finished", nil, "", "", report)
}

// acquireLock claims today's slot. Only one replica's insert succeeds.
func (s *PurgeService) acquireLock(ctx context.Context, now time.Time) (bool, error) {
	db := s.db.WithContext(ctx)

	if err := db.Where("lock_name = ? AND expires_at < ?", purgeLockName, now).Delete(&models.SchedulerLock{}).Error; err != nil {
		return false, err
	}

	lock := models.SchedulerLock{
		LockName:  purgeLockName,
		LockKey:   now.Format("2006-01-02"),
		LockedBy:  s.hostname,
		LockedAt:  now,
		ExpiresAt: now.Add(48 * time.Hour),
	}
	if err := db.Create(&lock).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Run performs one purge immediately. Retention set by admins at runtime
// takes precedence over the file config.
func (s *PurgeService) Run(ctx context.Context) (*PurgeReport, error) {
	report := &PurgeReport{}
	now := s.now()

	retention, err := s.settings.Retention(ctx, s.cfg)
	if err != nil {
		return report, err
	}

	if retention.RecordDays > 0 {
		cutoff := now.AddDate(0, 0, -retention.RecordDays)
		if err := s.purgeRecords(ctx, cutoff, report); err != nil {
			return report, err
		}
	}

	deleted, err := s.logs.CleanupOldLogs(ctx, retention.LogDays, now)
	if err != nil {
		return report, err
	}
	report.Logs = deleted
	return report, nil
}

func (s *PurgeService) purgeRecords(ctx context.Context, cutoff time.Time, report *PurgeReport) error {
	db := s.db.WithContext(ctx)

	expiredProjects := db.Session(&gorm.Session{NewDB: true}).Unscoped().
		Model(&models.Project{}).
		Select("id").
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff)

	// Bytes first: a row without its object is harmless, the reverse leaks.
	var docs []models.Document
	err := db.Unscoped().
		Where("(deleted_at IS NOT NULL AND deleted_at < ?) OR project_id IN (?)", cutoff, expiredProjects).
		Find(&docs).Error
	if err != nil {
		return err
	}
	docIDs := make([]uint, 0, len(docs))
	for _, doc := range docs {
		if err := s.store.Delete(ctx, doc.StorageKey); err != nil {
			logger.Warn().Err(err).Str("key", doc.StorageKey).Msg("failed to delete document object, keeping row")
			continue
		}
		docIDs = append(docIDs, doc.ID)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if len(docIDs) > 0 {
			res := tx.Unscoped().Where("id IN ?", docIDs).Delete(&models.Document{})
			if res.Error != nil {
				return res.Error
			}
			report.Documents = res.RowsAffected
		}

		children := []struct {
			model interface{}
			count *int64
		}{
			{&models.Comment{}, &report.Comments},
			{&models.Requirement{}, &report.Requirements},
			{&models.TestPlan{}, &report.TestPlans},
		}
		for _, child := range children {
			res := tx.Unscoped().
				Where("(deleted_at IS NOT NULL AND deleted_at < ?) OR project_id IN (?)", cutoff, expiredProjects).
				Delete(child.model)
			if res.Error != nil {
				return res.Error
			}
			*child.count = res.RowsAffected
		}

		// Projects whose documents could not be removed from storage stay,
		// and so do their members.
		res := tx.Where("project_id IN (?)", expiredProjects).
			Where("NOT EXISTS (SELECT 1 FROM documents d WHERE d.project_id = project_members.project_id)").
			Delete(&models.ProjectMember{})
		if res.Error != nil {
			return res.Error
		}
		report.Members = res.RowsAffected

		res = tx.Unscoped().
			Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
			Where("NOT EXISTS (SELECT 1 FROM documents d WHERE d.project_id = projects.id)").
			Delete(&models.Project{})
		if res.Error != nil {
			return res.Error
		}
		report.Projects = res.RowsAffected
		return nil
	})
}
