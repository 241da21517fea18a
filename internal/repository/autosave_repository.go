package repository

import (
	"context"

	"page-composer-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AutoSaveRepository interface {
	Get(ctx context.Context, key string) (*models.AutoSaveEntry, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

type autoSaveRepository struct {
	db *gorm.DB
}

func NewAutoSaveRepository(db *gorm.DB) AutoSaveRepository {
	return &autoSaveRepository{db: db}
}

func (r *autoSaveRepository) Get(ctx context.Context, key string) (*models.AutoSaveEntry, error) {
	var entry models.AutoSaveEntry
	err := r.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	return &entry, err
}

func (r *autoSaveRepository) Set(ctx context.Context, key string, data []byte) error {
	entry := &models.AutoSaveEntry{Key: key, Data: data}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(entry).Error
}

func (r *autoSaveRepository) Delete(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&models.AutoSaveEntry{}, "key = ?", key).Error
}
