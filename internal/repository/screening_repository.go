package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"applicant-rag/internal/model"
)

type ScreeningRepository struct {
	db *gorm.DB
}

func NewScreeningRepository(db *gorm.DB) *ScreeningRepository {
	return &ScreeningRepository{db: db}
}

// Create stores the screening and its answers in one transaction.
func (r *ScreeningRepository) Create(ctx context.Context, s *model.Screening) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(s).Error
	})
	if err != nil {
		return fmt.Errorf("create screening failed: %w", err)
	}
	return nil
}

// Latest returns the newest screening of an applicant, or nil.
func (r *ScreeningRepository) Latest(ctx context.Context, attorneyID, applicantID string) (*model.Screening, error) {
	var s model.Screening
	err := r.db.WithContext(ctx).
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("attorney_id = ? AND applicant_id = ?", attorneyID, applicantID).
		Order("created_at DESC").
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest screening failed: %w", err)
	}
	return &s, nil
}
