package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"applicant-rag/internal/model"
)

type VectorizedFileRepository struct {
	db *gorm.DB
}

func NewVectorizedFileRepository(db *gorm.DB) *VectorizedFileRepository {
	return &VectorizedFileRepository{db: db}
}

// Upsert writes the record keyed by collection, tag and filename.
func (r *VectorizedFileRepository) Upsert(ctx context.Context, f *model.VectorizedFile) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "tag"}, {Name: "filename"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "chunk_count", "error", "updated_at"}),
	}).Create(f).Error
	if err != nil {
		return fmt.Errorf("upsert vectorized file failed: %w", err)
	}
	return nil
}

func (r *VectorizedFileRepository) ListByCollection(ctx context.Context, collection string) ([]model.VectorizedFile, error) {
	var list []model.VectorizedFile
	if err := r.db.WithContext(ctx).Where("collection = ?", collection).Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list vectorized files failed: %w", err)
	}
	return list, nil
}

func (r *VectorizedFileRepository) Get(ctx context.Context, collection, tag, filename string) (*model.VectorizedFile, error) {
	var f model.VectorizedFile
	err := r.db.WithContext(ctx).
		Where("collection = ? AND tag = ? AND filename = ?", collection, tag, filename).
		First(&f).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vectorized file failed: %w", err)
	}
	return &f, nil
}

func (r *VectorizedFileRepository) Delete(ctx context.Context, collection, tag, filename string) error {
	err := r.db.WithContext(ctx).
		Where("collection = ? AND tag = ? AND filename = ?", collection, tag, filename).
		Delete(&model.VectorizedFile{}).Error
	if err != nil {
		return fmt.Errorf("delete vectorized file failed: %w", err)
	}
	return nil
}
