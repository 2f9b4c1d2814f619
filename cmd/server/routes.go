package main

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/testdesk/internal/access"
	"github.com/huangang/testdesk/internal/handlers"
	"github.com/huangang/testdesk/internal/middleware"
	"github.com/huangang/testdesk/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine. The
// returned limiter guards the login endpoints and must be stopped on exit.
func registerRoutes(r *gin.Engine, svc *appServices) *middleware.RateLimiter {
	r.Use(logger.RequestID(), logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.Server.CORSOrigins...))

	// Login and refresh are throttled per client IP.
	authLimiter := middleware.NewRateLimiter(5, 10)

	healthHandler := handlers.NewHealthHandler(svc.db, svc.taskQueue)
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", handlers.NewMetricsHandler(svc.db, svc.taskQueue).Metrics)

	authHandler := handlers.NewAuthHandler(svc.authService, svc.cfg.Server.SecureCookie)
	referenceHandler := handlers.NewReferenceHandler()
	projectHandler := handlers.NewProjectHandler(svc.projectService)
	memberHandler := handlers.NewProjectMemberHandler(svc.memberService)
	requirementHandler := handlers.NewRequirementHandler(svc.requirementService)
	testPlanHandler := handlers.NewTestPlanHandler(svc.testPlanService)
	documentHandler := handlers.NewDocumentHandler(svc.documentService)
	commentHandler := handlers.NewCommentHandler(svc.commentService)
	searchHandler := handlers.NewSearchHandler(svc.quickSearchService)
	userHandler := handlers.NewUserHandler(svc.userService)
	idFormatHandler := handlers.NewIDFormatHandler(svc.idFormatService)
	systemLogHandler := handlers.NewSystemLogHandler(svc.systemLogService)
	systemConfigHandler := handlers.NewSystemConfigHandler(svc.systemConfigService, svc.purgeService, &svc.cfg.Purge)

	api := r.Group("/api")
	api.Use(middleware.AuditLog())
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", authLimiter.Middleware(), authHandler.Login)
			auth.POST("/refresh", authLimiter.Middleware(), authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/config", authHandler.GetAuthConfig)
		}

		reference := api.Group("/reference")
		{
			reference.GET("/countries", referenceHandler.Countries)
			reference.GET("/timezones", referenceHandler.Timezones)
		}

		// Protected routes; visibility is enforced per record by the services.
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/auth/me", authHandler.GetCurrentUser)
			protected.POST("/auth/change-password", authHandler.ChangePassword)

			protected.GET("/search", searchHandler.Search)

			// Projects
			protected.GET("/projects", projectHandler.List)
			protected.GET("/projects/:id", projectHandler.GetByID)
			protected.POST("/projects", middleware.RolesRequired(access.RoleAdmin, access.RoleClient), projectHandler.Create)
			protected.PUT("/projects/:id", projectHandler.Update)
			protected.DELETE("/projects/:id", projectHandler.Delete)

			// Members
			protected.GET("/projects/:id/members", memberHandler.List)
			protected.POST("/projects/:id/members", memberHandler.Add)
			protected.PUT("/projects/:id/members/:member_id", memberHandler.Update)
			protected.DELETE("/projects/:id/members/:member_id", memberHandler.Remove)
			protected.POST("/projects/:id/membership/verify", memberHandler.Verify)

			// Requirements
			protected.GET("/projects/:id/requirements", requirementHandler.List)
			protected.POST("/projects/:id/requirements", requirementHandler.Create)
			protected.GET("/requirements/:id", requirementHandler.GetByID)
			protected.PUT("/requirements/:id", requirementHandler.Update)
			protected.DELETE("/requirements/:id", requirementHandler.Delete)

			// Test plans
			protected.GET("/projects/:id/test-plans", testPlanHandler.List)
			protected.POST("/projects/:id/test-plans", testPlanHandler.Create)
			protected.GET("/test-plans/:id", testPlanHandler.GetByID)
			protected.PUT("/test-plans/:id", testPlanHandler.Update)
			protected.DELETE("/test-plans/:id", testPlanHandler.Delete)

			// Documents
			protected.GET("/projects/:id/documents", documentHandler.List)
			protected.POST("/projects/:id/documents", documentHandler.Upload)
			protected.GET("/documents/:id", documentHandler.GetByID)
			protected.GET("/documents/:id/download", documentHandler.Download)
			protected.DELETE("/documents/:id", documentHandler.Delete)

			// Comments
			protected.GET("/projects/:id/comments", commentHandler.List)
			protected.POST("/projects/:id/comments", commentHandler.Create)
			protected.PUT("/comments/:id", commentHandler.Update)
			protected.DELETE("/comments/:id", commentHandler.Delete)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			admin.GET("/users", userHandler.List)
			admin.POST("/users", userHandler.Create)
			admin.PUT("/users/:id", userHandler.Update)
			admin.DELETE("/users/:id", userHandler.Delete)

			admin.GET("/id-formats", idFormatHandler.List)
			admin.GET("/id-formats/:entity_type", idFormatHandler.Get)
			admin.PUT("/id-formats/:entity_type", idFormatHandler.Update)

			admin.GET("/system-logs", systemLogHandler.List)
			admin.GET("/system-logs/modules", systemLogHandler.GetModules)

			admin.GET("/system-config/retention", systemConfigHandler.GetRetention)
			admin.PUT("/system-config/retention", systemConfigHandler.UpdateRetention)
			admin.POST("/system-config/purge", systemConfigHandler.RunPurge)
		}
	}

	return authLimiter
}
