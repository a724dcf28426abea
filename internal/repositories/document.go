package repositories

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"alfredoptarigan/ai-interviewer/internal/models"
)

type DocumentRepository interface {
	Create(document *models.Document) error
	FindByID(id string) (*models.Document, error)
	UpdateTextLength(id string, length int) error
	DeleteCreatedBefore(cutoff time.Time) (int64, error)
}

type documentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &documentRepository{db: db}
}

// Create implements DocumentRepository.
func (d *documentRepository) Create(document *models.Document) error {
	if err := d.db.Create(document).Error; err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	return nil
}

// FindByID implements DocumentRepository.
func (d *documentRepository) FindByID(id string) (*models.Document, error) {
	var doc models.Document
	if err := d.db.Where("id = ?", id).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
		}

		return nil, fmt.Errorf("failed to find document: %w", err)
	}

	return &doc, nil
}

// UpdateTextLength implements DocumentRepository.
func (d *documentRepository) UpdateTextLength(id string, length int) error {
	result := d.db.Model(&models.Document{}).Where("id = ?", id).Update("text_length", length)
	if result.Error != nil {
		return fmt.Errorf("failed to update document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteCreatedBefore implements DocumentRepository.
func (d *documentRepository) DeleteCreatedBefore(cutoff time.Time) (int64, error) {
	result := d.db.Where("created_at < ?", cutoff).Delete(&models.Document{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete documents: %w", result.Error)
	}
	return result.RowsAffected, nil
}
