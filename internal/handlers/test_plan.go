package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/testdesk/internal/middleware"
	"github.com/huangang/testdesk/internal/services"
	"github.com/huangang/testdesk/pkg/response"
)

type TestPlanHandler struct {
	testPlanService *services.TestPlanService
}

func NewTestPlanHandler(testPlanService *services.TestPlanService) *TestPlanHandler {
	return &TestPlanHandler{testPlanService: testPlanService}
}

// List returns the test plans of a project
// GET /api/projects/:id/test-plans
func (h *TestPlanHandler) List(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.TestPlanListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.testPlanService.List(c.Request.Context(), middleware.GetCaller(c), projectID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	paginated(c, result.Items, result.Total, req.Page)
}

func (h *TestPlanHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "test plan")
	if !ok {
		return
	}

	plan, err := h.testPlanService.Get(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, plan)
}

func (h *TestPlanHandler) Create(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.CreateTestPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	plan, err := h.testPlanService.Create(c.Request.Context(), middleware.GetCaller(c), projectID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Created(c, plan)
}

func (h *TestPlanHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "test plan")
	if !ok {
		return
	}

	var req services.UpdateTestPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	plan, err := h.testPlanService.Update(c.Request.Context(), middleware.GetCaller(c), id, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, plan)
}

func (h *TestPlanHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "test plan")
	if !ok {
		return
	}

	if err := h.testPlanService.Delete(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"message": "test plan deleted successfully"})
}
