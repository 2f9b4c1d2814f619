package services

import (
	"context"
	"errors"

	"github.com/huangang/testdesk/internal/models"
	"github.com/huangang/testdesk/internal/search"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IDFormatService struct {
	db *gorm.DB
}

func NewIDFormatService(db *gorm.DB) *IDFormatService {
	return &IDFormatService{db: db}
}

// NextSeq allocates the next display sequence of entityType. Call it inside
// the transaction that creates the entity so a rollback releases nothing
// visible.
func NextSeq(tx *gorm.DB, entityType string) (int, error) {
	res := tx.Model(&models.IDFormat{}).
		Where("entity_type = ?", entityType).
		UpdateColumn("counter", gorm.Expr("counter + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		inserted, err := insertFirstSeq(tx, entityType)
		if err != nil {
			return 0, err
		}
		if !inserted {
			// Lost a race with another creator; the row exists now.
			return NextSeq(tx, entityType)
		}
		return 1, nil
	}

	var format models.IDFormat
	if err := tx.Where("entity_type = ?", entityType).First(&format).Error; err != nil {
		return 0, err
	}
	return format.Counter, nil
}

// insertFirstSeq creates the format row of entityType with counter 1. It
// reports false when the row already exists.
func insertFirstSeq(tx *gorm.DB, entityType string) (bool, error) {
	format := models.DefaultIDFormat(entityType)
	format.Counter = 1
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&format)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *IDFormatService) List(ctx context.Context) ([]models.IDFormat, error) {
	var formats []models.IDFormat
	if err := s.db.WithContext(ctx).Order("entity_type").Find(&formats).Error; err != nil {
		return nil, err
	}
	return formats, nil
}

func (s *IDFormatService) Get(ctx context.Context, entityType string) (models.IDFormat, error) {
	format, err := search.LoadFormat(s.db.WithContext(ctx), entityType)
	if err != nil {
		return models.IDFormat{}, err
	}
	if !knownEntityType(entityType) {
		return models.IDFormat{}, notFound("id format")
	}
	return format, nil
}

type UpdateIDFormatRequest struct {
	Prefix string `json:"prefix" binding:"max=20"`
	Digits int    `json:"digits" binding:"min=1,max=10"`
}

// Update changes how display IDs render. Stored sequences are untouched, so
// every existing record is shown with the new format on its next read.
func (s *IDFormatService) Update(ctx context.Context, entityType string, req *UpdateIDFormatRequest) (*models.IDFormat, error) {
	if !knownEntityType(entityType) {
		return nil, notFound("id format")
	}
	db := s.db.WithContext(ctx)

	var format models.IDFormat
	err := db.Where("entity_type = ?", entityType).First(&format).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		format = models.DefaultIDFormat(entityType)
	} else if err != nil {
		return nil, err
	}

	format.Prefix = req.Prefix
	format.Digits = req.Digits
	if err := db.Save(&format).Error; err != nil {
		return nil, err
	}
	return &format, nil
}

func knownEntityType(entityType string) bool {
	for _, f := range models.DefaultIDFormats() {
		if f.EntityType == entityType {
			return true
		}
	}
	return false
}
