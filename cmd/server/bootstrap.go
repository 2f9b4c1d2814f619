package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/testdesk/internal/config"
	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/internal/services"
	"github.com/huangang/testdesk/internal/storage"
	"github.com/huangang/testdesk/internal/utils"
	"github.com/huangang/testdesk/internal/validation"
	"github.com/huangang/testdesk/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const shutdownTimeout = 15 * time.Second

// appServices holds all initialized services needed by the application.
type appServices struct {
	cfg   *config.Config
	db    *gorm.DB
	store storage.Store

	authService         *services.AuthService
	userService         *services.UserService
	projectService      *services.ProjectService
	memberService       *services.MemberService
	requirementService  *services.RequirementService
	testPlanService     *services.TestPlanService
	documentService     *services.DocumentService
	commentService      *services.CommentService
	quickSearchService  *services.QuickSearchService
	idFormatService     *services.IDFormatService
	systemLogService    *services.SystemLogService
	systemConfigService *services.SystemConfigService
	purgeService        *services.PurgeService

	taskQueue services.TaskQueue
	worker    *services.Worker
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level)
	return cfg, nil
}

// openDatabase connects, migrates and seeds.
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	if err := models.InitDB(&cfg.Database, cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	db := models.GetDB()
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	if err := models.SeedDefaultData(db); err != nil {
		return nil, fmt.Errorf("seed default data: %w", err)
	}
	return db, nil
}

// bootstrap initializes all application dependencies: database, storage,
// services, the invitation queue and the purge scheduler.
func bootstrap(ctx context.Context, cfg *config.Config) (*appServices, error) {
	utils.SetJWTSecret(cfg.JWT.Secret)
	if err := validation.RegisterGin(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return nil, err
	}
	services.InitSystemLogger(db)

	store, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	authService := services.NewAuthService(db, &cfg.JWT, services.NewLDAPService(&cfg.LDAP))
	if cfg.Admin.Password != "" {
		admin, err := authService.CreateAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password, true)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to create admin user")
		} else if admin != nil {
			logger.Info().Str("username", admin.Username).Msg("Created initial admin user")
		}
	}
	invitations := services.NewInvitationService(db, services.NewMailer(&cfg.SMTP), cfg.Server.PublicURL)

	// Uses Redis if enabled, otherwise invitations are delivered in-process.
	taskQueue := services.NewTaskQueue(&cfg.Redis)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(invitations.Deliver)
	}

	worker := services.NewWorker(&cfg.Redis)
	if worker != nil {
		worker.SetProcessor(invitations.Deliver)
		if err := worker.Start(); err != nil {
			return nil, fmt.Errorf("start worker: %w", err)
		}
	}

	purgeService := services.NewPurgeService(db, store, &cfg.Purge)
	if err := purgeService.StartScheduler(); err != nil {
		return nil, fmt.Errorf("start purge scheduler: %w", err)
	}

	return &appServices{
		cfg:   cfg,
		db:    db,
		store: store,

		authService:         authService,
		userService:         services.NewUserService(db, authService),
		projectService:      services.NewProjectService(db),
		memberService:       services.NewMemberService(db, taskQueue),
		requirementService:  services.NewRequirementService(db),
		testPlanService:     services.NewTestPlanService(db),
		documentService:     services.NewDocumentService(db, store, cfg.Storage.MaxSizeMB),
		commentService:      services.NewCommentService(db),
		quickSearchService:  services.NewQuickSearchService(db),
		idFormatService:     services.NewIDFormatService(db),
		systemLogService:    services.NewSystemLogService(db),
		systemConfigService: services.NewSystemConfigService(db),
		purgeService:        purgeService,

		taskQueue: taskQueue,
		worker:    worker,
	}, nil
}

// shutdown gracefully stops all background work.
func (s *appServices) shutdown() {
	s.purgeService.StopScheduler()
	logger.Info().Msg("Purge scheduler stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close task queue")
		}
	}
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func serveCommand(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.shutdown()

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	limiter := registerRoutes(r, app)
	defer limiter.Stop()

	srv := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func migrateCommand(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("Database schema is up to date")
	return nil
}

func createAdminCommand(cmd *cobra.Command, _ []string) error {
	username := adminFlags[adminUsernameFlag].GetString()
	password := adminFlags[adminPasswordFlag].GetString()
	if password == "" {
		return errors.New("--password is required")
	}
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	auth := services.NewAuthService(db, &cfg.JWT, nil)
	admin, err := auth.CreateAdmin(cmd.Context(), username, password, false)
	if err != nil {
		return err
	}
	logger.Info().Uint("id", admin.ID).Str("username", admin.Username).Msg("Admin account created")
	return nil
}
