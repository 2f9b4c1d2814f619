package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/testdesk/internal/middleware"
	"github.com/huangang/testdesk/internal/services"
	"github.com/huangang/testdesk/pkg/response"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// List returns the projects visible to the caller
// GET /api/projects
func (h *ProjectHandler) List(c *gin.Context) {
	var req services.ProjectListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.projectService.List(c.Request.Context(), middleware.GetCaller(c), &req)
	if err != nil {
		fail(c, err)
		return
	}

	paginated(c, result.Items, result.Total, req.Page)
}

// GetByID returns a project by ID
// GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, project)
}

// Create creates a new project
// POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req services.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), middleware.GetCaller(c), &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Created(c, project)
}

// Update updates a project
// PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), middleware.GetCaller(c), id, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, project)
}

// Delete soft-deletes a project
// DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"message": "project deleted successfully"})
}
