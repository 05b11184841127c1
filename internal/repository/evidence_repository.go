package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"applicant-rag/internal/model"
)

type EvidenceRepository struct {
	db *gorm.DB
}

func NewEvidenceRepository(db *gorm.DB) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

func (r *EvidenceRepository) Create(ctx context.Context, letter *model.EvidenceLetter) error {
	if err := r.db.WithContext(ctx).Create(letter).Error; err != nil {
		return fmt.Errorf("create evidence letter failed: %w", err)
	}
	return nil
}

// Latest returns the newest letter of an applicant, or nil.
func (r *EvidenceRepository) Latest(ctx context.Context, attorneyID, applicantID string) (*model.EvidenceLetter, error) {
	var letter model.EvidenceLetter
	err := r.db.WithContext(ctx).
		Where("attorney_id = ? AND applicant_id = ?", attorneyID, applicantID).
		Order("created_at DESC").
		First(&letter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest evidence letter failed: %w", err)
	}
	return &letter, nil
}
