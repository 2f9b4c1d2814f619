package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/testdesk/internal/middleware"
	"github.com/huangang/testdesk/internal/services"
	"github.com/huangang/testdesk/pkg/response"
)

type RequirementHandler struct {
	requirementService *services.RequirementService
}

func NewRequirementHandler(requirementService *services.RequirementService) *RequirementHandler {
	return &RequirementHandler{requirementService: requirementService}
}

// List returns the requirements of a project
// GET /api/projects/:id/requirements
func (h *RequirementHandler) List(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.RequirementListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.requirementService.List(c.Request.Context(), middleware.GetCaller(c), projectID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	paginated(c, result.Items, result.Total, req.Page)
}

// GET /api/requirements/:id
func (h *RequirementHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "requirement")
	if !ok {
		return
	}

	requirement, err := h.requirementService.Get(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, requirement)
}

// POST /api/projects/:id/requirements
func (h *RequirementHandler) Create(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.CreateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	requirement, err := h.requirementService.Create(c.Request.Context(), middleware.GetCaller(c), projectID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Created(c, requirement)
}

// PUT /api/requirements/:id
func (h *RequirementHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "requirement")
	if !ok {
		return
	}

	var req services.UpdateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	requirement, err := h.requirementService.Update(c.Request.Context(), middleware.GetCaller(c), id, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, requirement)
}

// DELETE /api/requirements/:id
func (h *RequirementHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "requirement")
	if !ok {
		return
	}

	if err := h.requirementService.Delete(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"message": "requirement deleted successfully"})
}
