package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"applicant-rag/internal/model"
)

type QuestionnaireRepository struct {
	db *gorm.DB
}

func NewQuestionnaireRepository(db *gorm.DB) *QuestionnaireRepository {
	return &QuestionnaireRepository{db: db}
}

// Replace swaps the applicant's questionnaire for items atomically.
func (r *QuestionnaireRepository) Replace(ctx context.Context, attorneyID, applicantID string, items []model.QuestionnaireItem) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("attorney_id = ? AND applicant_id = ?", attorneyID, applicantID).
			Delete(&model.QuestionnaireItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	})
	if err != nil {
		return fmt.Errorf("replace questionnaire failed: %w", err)
	}
	return nil
}

func (r *QuestionnaireRepository) List(ctx context.Context, attorneyID, applicantID string) ([]model.QuestionnaireItem, error) {
	var items []model.QuestionnaireItem
	err := r.db.WithContext(ctx).
		Where("attorney_id = ? AND applicant_id = ?", attorneyID, applicantID).
		Order("position ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list questionnaire failed: %w", err)
	}
	return items, nil
}
