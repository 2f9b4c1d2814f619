package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/testdesk/internal/config"
	"github.com/huangang/testdesk/internal/services"
	"github.com/huangang/testdesk/pkg/response"
)

// SystemConfigHandler exposes runtime settings and maintenance actions.
type SystemConfigHandler struct {
	configService *services.SystemConfigService
	purgeService  *services.PurgeService
	purgeDefaults *config.PurgeConfig
}

func NewSystemConfigHandler(configService *services.SystemConfigService, purgeService *services.PurgeService, purgeDefaults *config.PurgeConfig) *SystemConfigHandler {
	return &SystemConfigHandler{
		configService: configService,
		purgeService:  purgeService,
		purgeDefaults: purgeDefaults,
	}
}

// GetRetention returns the effective retention settings
// GET /api/system-config/retention
func (h *SystemConfigHandler) GetRetention(c *gin.Context) {
	settings, err := h.configService.Retention(c.Request.Context(), h.purgeDefaults)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, settings)
}

// UpdateRetention stores retention overrides
// PUT /api/system-config/retention
func (h *SystemConfigHandler) UpdateRetention(c *gin.Context) {
	var req services.RetentionSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	if err := h.configService.SetRetention(c.Request.Context(), &req); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, req)
}

// RunPurge runs the purge job now and returns what it removed
// POST /api/system-config/purge
func (h *SystemConfigHandler) RunPurge(c *gin.Context) {
	report, err := h.purgeService.Run(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, report)
}
