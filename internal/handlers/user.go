package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/testdesk/internal/middleware"
	"github.com/huangang/testdesk/internal/services"
	"github.com/huangang/testdesk/pkg/response"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) List(c *gin.Context) {
	var req services.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	users, total, err := h.userService.List(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	paginated(c, users, total, req.Page)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req services.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	user, err := h.userService.Create(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Created(c, user)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id", "user")
	if !ok {
		return
	}

	var req services.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	user, err := h.userService.Update(c.Request.Context(), middleware.GetUserID(c), id, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "user")
	if !ok {
		return
	}

	if err := h.userService.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"message": "user deleted successfully"})
}
