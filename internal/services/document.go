package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/huangang/testdesk/internal/access"
	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/internal/search"
	"github.com/huangang/testdesk/internal/storage"
	"github.com/huangang/testdesk/pkg/logger"
	"gorm.io/gorm"
)

// DocumentService stores metadata in the database and bytes in a
// storage.Store.
type DocumentService struct {
	db      *gorm.DB
	store   storage.Store
	maxSize int64
}

func NewDocumentService(db *gorm.DB, store storage.Store, maxSizeMB int64) *DocumentService {
	return &DocumentService{db: db, store: store, maxSize: maxSizeMB << 20}
}

// UploadDocumentRequest carries the form fields of a multipart upload.
type UploadDocumentRequest struct {
	Name        string `form:"name" binding:"max=256"`
	Description string `form:"description" binding:"max=10000"`
	AssignedTo  *uint  `form:"assigned_to"`
}

// Upload is the file part of an upload.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Download struct {
	Document *models.Document
	Object   *storage.Object
}

func (s *DocumentService) List(ctx context.Context, caller access.Caller, projectID uint, req *ChildListRequest) (*search.Result[models.Document], error) {
	if _, err := visibleProject(s.db.WithContext(ctx), caller, projectID); err != nil {
		return nil, err
	}
	return search.Run[models.Document](ctx, s.db, search.Documents.InProject(projectID), caller, req.params())
}

func (s *DocumentService) Get(ctx context.Context, caller access.Caller, id uint) (*models.Document, error) {
	db := s.db.WithContext(ctx)

	doc, err := loadChild[models.Document](db, caller, "documents", id, "document", "Creator")
	if err != nil {
		return nil, err
	}
	if err := decorate(db, models.EntityDocument, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Create writes the bytes first and the row second; a failed insert removes
// the object again.
func (s *DocumentService) Create(ctx context.Context, caller access.Caller, projectID uint, req *UploadDocumentRequest, file *Upload) (*models.Document, error) {
	db := s.db.WithContext(ctx)

	if _, err := visibleProject(db, caller, projectID); err != nil {
		return nil, err
	}
	if file == nil || file.Body == nil || file.FileName == "" {
		return nil, invalid("file is required")
	}
	if file.Size <= 0 {
		return nil, invalid("file is empty")
	}
	if s.maxSize > 0 && file.Size > s.maxSize {
		return nil, invalid("file exceeds %d MB", s.maxSize>>20)
	}
	if req.AssignedTo != nil {
		if err := checkAssignee(db, projectID, *req.AssignedTo); err != nil {
			return nil, err
		}
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = file.FileName
	}

	key := storage.DocumentKey(projectID, file.FileName)
	if err := s.store.Put(ctx, key, file.Body, file.Size, contentType); err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	doc := models.Document{
		ProjectID:   projectID,
		UserID:      caller.ID,
		AssignedTo:  req.AssignedTo,
		Name:        name,
		Description: req.Description,
		FileName:    file.FileName,
		StorageKey:  key,
		ContentType: contentType,
		Size:        file.Size,
	}
	if err := createSequenced(db, models.EntityDocument, &doc); err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			logger.Warn().Err(delErr).Str("key", key).Msg("failed to remove orphaned document object")
		}
		return nil, err
	}
	return s.Get(ctx, caller, doc.ID)
}

// Open returns the document and its bytes. The caller closes Object.Body.
func (s *DocumentService) Open(ctx context.Context, caller access.Caller, id uint) (*Download, error) {
	doc, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	obj, err := s.store.Get(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, notFound("document content")
		}
		return nil, err
	}
	if obj.ContentType == "" || obj.ContentType == "application/octet-stream" {
		obj.ContentType = doc.ContentType
	}
	return &Download{Document: doc, Object: obj}, nil
}

// Delete soft-deletes the row. The bytes stay until the purge job removes
// the row for good.
func (s *DocumentService) Delete(ctx context.Context, caller access.Caller, id uint) error {
	db := s.db.WithContext(ctx)

	doc, err := loadChild[models.Document](db, caller, "documents", id, "document")
	if err != nil {
		return err
	}
	if err := canModifyChild(db, caller, doc.ProjectID, doc.UserID); err != nil {
		return err
	}
	return db.Delete(doc).Error
}
