package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/testdesk/internal/services"
	"github.com/huangang/testdesk/pkg/response"
)

// IDFormatHandler manages how display IDs such as PRJ-0001 render.
type IDFormatHandler struct {
	idFormatService *services.IDFormatService
}

func NewIDFormatHandler(idFormatService *services.IDFormatService) *IDFormatHandler {
	return &IDFormatHandler{idFormatService: idFormatService}
}

// GET /api/id-formats
func (h *IDFormatHandler) List(c *gin.Context) {
	formats, err := h.idFormatService.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, formats)
}

// GET /api/id-formats/:entity_type
func (h *IDFormatHandler) Get(c *gin.Context) {
	format, err := h.idFormatService.Get(c.Request.Context(), c.Param("entity_type"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, format)
}

// PUT /api/id-formats/:entity_type
func (h *IDFormatHandler) Update(c *gin.Context) {
	var req services.UpdateIDFormatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	format, err := h.idFormatService.Update(c.Request.Context(), c.Param("entity_type"), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, format)
}
