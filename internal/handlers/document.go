package handlers

import (
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/huangang/testdesk/internal/middleware"
	"github.com/huangang/testdesk/internal/services"
	"github.com/huangang/testdesk/pkg/logger"
	"github.com/huangang/testdesk/pkg/response"
)

type DocumentHandler struct {
	documentService *services.DocumentService
}

func NewDocumentHandler(documentService *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// List returns the documents of a project
// GET /api/projects/:id/documents
func (h *DocumentHandler) List(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.ChildListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	result, err := h.documentService.List(c.Request.Context(), middleware.GetCaller(c), projectID, &req)
	if err != nil {
		fail(c, err)
		return
	}

	paginated(c, result.Items, result.Total, req.Page)
}

// GET /api/documents/:id
func (h *DocumentHandler) GetByID(c *gin.Context) {
	id, ok := paramID(c, "id", "document")
	if !ok {
		return
	}

	doc, err := h.documentService.Get(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		fail(c, err)
		return
	}

	response.Success(c, doc)
}

// Upload stores a multipart "file" part together with its metadata fields
// POST /api/projects/:id/documents
func (h *DocumentHandler) Upload(c *gin.Context) {
	projectID, ok := paramID(c, "id", "project")
	if !ok {
		return
	}

	var req services.UploadDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		response.BadRequest(c, "unreadable file")
		return
	}
	defer file.Close()

	doc, err := h.documentService.Create(c.Request.Context(), middleware.GetCaller(c), projectID, &req, &services.Upload{
		FileName:    filepath.Base(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		fail(c, err)
		return
	}

	response.Created(c, doc)
}

// Download streams the stored bytes
// GET /api/documents/:id/download
func (h *DocumentHandler) Download(c *gin.Context) {
	id, ok := paramID(c, "id", "document")
	if !ok {
		return
	}

	dl, err := h.documentService.Open(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	defer func() {
		if err := dl.Object.Body.Close(); err != nil {
			logger.Warn().Err(err).Uint("document_id", id).Msg("failed to close document body")
		}
	}()

	size := dl.Object.Size
	if size <= 0 {
		size = -1
	}
	c.DataFromReader(http.StatusOK, size, dl.Object.ContentType, dl.Object.Body, map[string]string{
		"Content-Disposition": mime.FormatMediaType("attachment", map[string]string{"filename": dl.Document.FileName}),
	})
}

// DELETE /api/documents/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id", "document")
	if !ok {
		return
	}

	if err := h.documentService.Delete(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		fail(c, err)
		return
	}

	response.Success(c, gin.H{"message": "document deleted successfully"})
}
