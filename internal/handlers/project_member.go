package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/testdesk/internal/middleware"
	"github.com/huangang/testdesk/internal/services"
	"github.com/huangang/testdesk/pkg/response"
)

// ProjectMemberHandler provides the membership endpoints of a project.
type ProjectMemberHandler struct {
	memberService *services.MemberService
}

func NewProjectMemberHandler(memberService *services.MemberService) *ProjectMemberHandler {
	return &ProjectMemberHandler{memberService: memberService}
}

// List returns all members of a project.
// GET /api/projects/:id/members
func (h *ProjectMemberHandler) List(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	members, err := h.memberService.List(c.Request.Context(), middleware.GetCaller(c), projectID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, members)
}

// Add invites a user to a project.
// POST /api/projects/:id/members
func (h *ProjectMemberHandler) Add(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	member, err := h.memberService.Add(c.Request.Context(), middleware.GetCaller(c), projectID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Created(c, member)
}

// Update changes the verification flag of a member.
// PUT /api/projects/:id/members/:member_id
func (h *ProjectMemberHandler) Update(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}
	memberID, ok := paramID(c, "member_id", "member")
	if !ok {
		return
	}

	var req services.UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	member, err := h.memberService.Update(c.Request.Context(), middleware.GetCaller(c), projectID, memberID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, member)
}

// Remove removes a user from a project.
// DELETE /api/projects/:id/members/:member_id
func (h *ProjectMemberHandler) Remove(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}
	memberID, ok := paramID(c, "member_id", "member")
	if !ok {
		return
	}

	if err := h.memberService.Remove(c.Request.Context(), middleware.GetCaller(c), projectID, memberID); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"message": "member removed"})
}

// Verify accepts a pending invitation for the caller.
// POST /api/projects/:id/membership/verify
func (h *ProjectMemberHandler) Verify(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	member, err := h.memberService.Verify(c.Request.Context(), middleware.GetCaller(c), projectID)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, member)
}
