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

type ErrorRepository struct {
	db *gorm.DB
}

func NewErrorRepository(db *gorm.DB) *ErrorRepository {
	return &ErrorRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *ErrorRepository) WithTx(tx *gorm.DB) *ErrorRepository {
	return &ErrorRepository{db: tx}
}

// UpsertByAttribute records a mapping failure scoped to (workspace, expense
// attribute). Recurrence bumps repetition_count on the existing row instead
// of creating a duplicate, and re-opens a previously resolved row.
func (r *ErrorRepository) UpsertByAttribute(ctx context.Context, workspaceID string, attributeID string, errorType string, title string, detail string) (*models.Error, error) {
	return r.upsert(ctx, workspaceID, &attributeID, nil, errorType, title, detail)
}

// UpsertByAccountingExport records a destination failure scoped to
// (workspace, accounting export), with the same repetition semantics.
func (r *ErrorRepository) UpsertByAccountingExport(ctx context.Context, workspaceID string, exportID string, errorType string, title string, detail string) (*models.Error, error) {
	return r.upsert(ctx, workspaceID, nil, &exportID, errorType, title, detail)
}

func (r *ErrorRepository) upsert(ctx context.Context, workspaceID string, attributeID *string, exportID *string, errorType string, title string, detail string) (*models.Error, error) {
	var row models.Error

	query := r.db.WithContext(ctx).Where("workspace_id = ?", workspaceID)
	if attributeID != nil {
		query = query.Where("expense_attribute_id = ?", *attributeID)
	} else {
		query = query.Where("accounting_export_id = ?", *exportID)
	}

	err := query.First(&row).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up error row: %w", err)
		}
		row = models.Error{
			ID:                 uuid.New().String(),
			WorkspaceID:        workspaceID,
			Type:               errorType,
			ExpenseAttributeID: attributeID,
			AccountingExportID: exportID,
			ErrorTitle:         title,
			ErrorDetail:        detail,
			IsResolved:         false,
			RepetitionCount:    1,
		}
		if createErr := r.db.WithContext(ctx).Create(&row).Error; createErr != nil {
			return nil, fmt.Errorf("failed to create error row: %w", createErr)
		}
		return &row, nil
	}

	row.Type = errorType
	row.ErrorTitle = title
	row.ErrorDetail = detail
	row.IsResolved = false
	row.RepetitionCount++
	updateErr := r.db.WithContext(ctx).Model(&models.Error{}).
		Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"type":             row.Type,
			"error_title":      row.ErrorTitle,
			"error_detail":     row.ErrorDetail,
			"is_resolved":      false,
			"repetition_count": row.RepetitionCount,
			"updated_at":       time.Now(),
		})
	if updateErr.Error != nil {
		return nil, fmt.Errorf("failed to update error row: %w", updateErr.Error)
	}
	return &row, nil
}

// ResolveForExport marks all open errors tied to an accounting export resolved
func (r *ErrorRepository) ResolveForExport(ctx context.Context, workspaceID string, exportID string) error {
	result := r.db.WithContext(ctx).Model(&models.Error{}).
		Where("workspace_id = ? AND accounting_export_id = ? AND is_resolved = ?", workspaceID, exportID, false).
		Updates(map[string]interface{}{
			"is_resolved": true,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to resolve errors: %w", result.Error)
	}
	return nil
}

// ResolveForAttributes marks open errors for the given expense attributes
// resolved, used when an import run creates the missing mappings
func (r *ErrorRepository) ResolveForAttributes(ctx context.Context, workspaceID string, attributeIDs []string) error {
	if len(attributeIDs) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.Error{}).
		Where("workspace_id = ? AND expense_attribute_id IN ? AND is_resolved = ?", workspaceID, attributeIDs, false).
		Updates(map[string]interface{}{
			"is_resolved": true,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to resolve attribute errors: %w", result.Error)
	}
	return nil
}

// GetUnresolvedForExport returns the open error row for an export, if any
func (r *ErrorRepository) GetUnresolvedForExport(ctx context.Context, workspaceID string, exportID string) (*models.Error, error) {
	var row models.Error
	result := r.db.WithContext(ctx).
		Where("workspace_id = ? AND accounting_export_id = ? AND is_resolved = ?", workspaceID, exportID, false).
		First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get unresolved error: %w", result.Error)
	}
	return &row, nil
}

// ListUnresolvedByType returns open errors of a given type for a workspace
func (r *ErrorRepository) ListUnresolvedByType(ctx context.Context, workspaceID string, errorType string) ([]models.Error, error) {
	var rows []models.Error
	result := r.db.WithContext(ctx).
		Where("workspace_id = ? AND type = ? AND is_resolved = ?", workspaceID, errorType, false).
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list unresolved errors: %w", result.Error)
	}
	return rows, nil
}
