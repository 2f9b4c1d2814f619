package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/testdesk/internal/middleware"
	"github.com/huangang/testdesk/internal/services"
	"github.com/huangang/testdesk/pkg/response"
)

// SearchHandler serves the cross-entity quick search box.
type SearchHandler struct {
	quickSearchService *services.QuickSearchService
}

func NewSearchHandler(quickSearchService *services.QuickSearchService) *SearchHandler {
	return &SearchHandler{quickSearchService: quickSearchService}
}

// Search matches q against every entity the caller can see
// GET /api/search?q=
func (h *SearchHandler) Search(c *gin.Context) {
	var req services.QuickSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.quickSearchService.Search(c.Request.Context(), middleware.GetCaller(c), &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, result)
}
