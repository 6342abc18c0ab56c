package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyle-integrations/business-central-worker/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ImportLogRepository tracks per-(workspace, attribute type) import runs
type ImportLogRepository struct {
	db *gorm.DB
}

func NewImportLogRepository(db *gorm.DB) *ImportLogRepository {
	return &ImportLogRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *ImportLogRepository) WithTx(tx *gorm.DB) *ImportLogRepository {
	return &ImportLogRepository{db: tx}
}

// GetOrCreate returns the import log for the scope, creating an empty row on
// first use
func (r *ImportLogRepository) GetOrCreate(ctx context.Context, workspaceID, attributeType string) (*models.ImportLog, error) {
	var log models.ImportLog
	result := r.db.WithContext(ctx).
		Where("workspace_id = ? AND attribute_type = ?", workspaceID, attributeType).
		First(&log)
	if result.Error == nil {
		return &log, nil
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get import log: %w", result.Error)
	}

	log = models.ImportLog{
		ID:            uuid.New().String(),
		WorkspaceID:   workspaceID,
		AttributeType: attributeType,
	}
	if err := r.db.WithContext(ctx).Create(&log).Error; err != nil {
		return nil, fmt.Errorf("failed to create import log: %w", err)
	}
	return &log, nil
}

// MarkInProgress stamps the run as started with the batch count it will process
func (r *ImportLogRepository) MarkInProgress(ctx context.Context, logID string, totalBatches int) error {
	result := r.db.WithContext(ctx).Model(&models.ImportLog{}).
		Where("id = ?", logID).
		Updates(map[string]interface{}{
			"status":                  models.ImportStatusInProgress,
			"total_batches_count":     totalBatches,
			"processed_batches_count": 0,
			"error_log":               nil,
			"updated_at":              time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark import log in progress: %w", result.Error)
	}
	return nil
}

// IncrementProcessedBatches records one completed batch
func (r *ImportLogRepository) IncrementProcessedBatches(ctx context.Context, logID string) error {
	result := r.db.WithContext(ctx).Model(&models.ImportLog{}).
		Where("id = ?", logID).
		Updates(map[string]interface{}{
			"processed_batches_count": gorm.Expr("processed_batches_count + 1"),
			"updated_at":              time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to increment processed batches: %w", result.Error)
	}
	return nil
}

// MarkComplete stamps the successful-run watermark and clears batch counters
func (r *ImportLogRepository) MarkComplete(ctx context.Context, logID string, completedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.ImportLog{}).
		Where("id = ?", logID).
		Updates(map[string]interface{}{
			"status":                  models.ImportStatusComplete,
			"last_successful_run_at":  completedAt,
			"total_batches_count":     0,
			"processed_batches_count": 0,
			"error_log":               nil,
			"updated_at":              time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark import log complete: %w", result.Error)
	}
	return nil
}

// MarkFailed records the failure detail; the watermark is left untouched so
// the next run re-covers the failed window
func (r *ImportLogRepository) MarkFailed(ctx context.Context, logID string, status string, errorLog models.JSONB) error {
	result := r.db.WithContext(ctx).Model(&models.ImportLog{}).
		Where("id = ?", logID).
		Updates(map[string]interface{}{
			"status":     status,
			"error_log":  errorLog,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark import log failed: %w", result.Error)
	}
	return nil
}
