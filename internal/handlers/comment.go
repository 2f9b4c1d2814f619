package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/testdesk/internal/middleware"
	"github.com/huangang/testdesk/internal/services"
	"github.com/huangang/testdesk/pkg/response"
)

type CommentHandler struct {
	commentService *services.CommentService
}

func NewCommentHandler(commentService *services.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

// List returns the comments of a project, optionally narrowed to one entity
// GET /api/projects/:id/comments
func (h *CommentHandler) List(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.CommentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.commentService.List(c.Request.Context(), middleware.GetCaller(c), projectID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	paginated(c, result.Items, result.Total, req.Page)
}

// POST /api/projects/:id/comments
func (h *CommentHandler) Create(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	comment, err := h.commentService.Create(c.Request.Context(), middleware.GetCaller(c), projectID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Created(c, comment)
}

// PUT /api/comments/:id
func (h *CommentHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "comment")
	if !ok {
		return
	}

	var req services.UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	comment, err := h.commentService.Update(c.Request.Context(), middleware.GetCaller(c), id, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, comment)
}

// DELETE /api/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "comment")
	if !ok {
		return
	}

	if err := h.commentService.Delete(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"message": "comment deleted successfully"})
}
