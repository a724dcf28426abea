package repositories

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"alfredoptarigan/ai-interviewer/internal/models"
)

// CandidateRepository is the roster of completed interviews. Records are
// appended once and never updated.
type CandidateRepository interface {
	Append(record *models.CandidateRecord) error
	FindByID(id string) (*models.CandidateRecord, error)
	List(search string) ([]models.CandidateRecord, error)
	Delete(id string) error
}

type candidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &candidateRepository{db: db}
}

func (r *candidateRepository) Append(record *models.CandidateRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to append candidate: %w", err)
	}
	return nil
}

func (r *candidateRepository) FindByID(id string) (*models.CandidateRecord, error) {
	var rec models.CandidateRecord
	if err := r.db.Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("candidate %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find candidate: %w", err)
	}
	return &rec, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List returns records whose name contains search (case-insensitive), best
// score first.
func (r *candidateRepository) List(search string) ([]models.CandidateRecord, error) {
	query := r.db.Model(&models.CandidateRecord{})
	if s := strings.TrimSpace(search); s != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(s))+"%")
	}

	records := []models.CandidateRecord{}
	if err := query.Order("final_score desc").Order("created_at desc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return records, nil
}

// Delete removes a record. Deleting an unknown id is not an error.
func (r *candidateRepository) Delete(id string) error {
	if err := r.db.Where("id = ?", id).Delete(&models.CandidateRecord{}).Error; err != nil {
		return fmt.Errorf("failed to delete candidate: %w", err)
	}
	return nil
}
