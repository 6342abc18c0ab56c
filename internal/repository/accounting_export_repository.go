package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyle-integrations/business-central-worker/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrAccountingExportNotFound = errors.New("accounting export not found")

type AccountingExportRepository struct {
	db *gorm.DB
}

func NewAccountingExportRepository(db *gorm.DB) *AccountingExportRepository {
	return &AccountingExportRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *AccountingExportRepository) WithTx(tx *gorm.DB) *AccountingExportRepository {
	return &AccountingExportRepository{db: tx}
}

// GetByID retrieves an accounting export with its expenses preloaded
func (r *AccountingExportRepository) GetByID(ctx context.Context, exportID string) (*models.AccountingExport, error) {
	var export models.AccountingExport
	result := r.db.WithContext(ctx).Preload("Expenses").First(&export, "id = ?", exportID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAccountingExportNotFound
		}
		return nil, fmt.Errorf("failed to get accounting export: %w", result.Error)
	}
	return &export, nil
}

// UpsertFetchExport creates or resets the singleton fetch-type export for a
// workspace, flipping it to IN_PROGRESS for the new run
func (r *AccountingExportRepository) UpsertFetchExport(ctx context.Context, workspaceID string, exportType string) (*models.AccountingExport, error) {
	export := models.AccountingExport{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		Type:        exportType,
		Status:      models.ExportStatusInProgress,
	}

	// Conflict target matches the partial unique index covering fetch types only
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "workspace_id"}, {Name: "type"}},
		TargetWhere: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "type IN ?", Vars: []interface{}{models.FetchExportTypes}},
		}},
		DoUpdates: clause.Assignments(map[string]interface{}{"status": models.ExportStatusInProgress, "updated_at": time.Now()}),
	}).Create(&export)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to upsert fetch export: %w", result.Error)
	}

	var stored models.AccountingExport
	if err := r.db.WithContext(ctx).First(&stored, "workspace_id = ? AND type = ?", workspaceID, exportType).Error; err != nil {
		return nil, fmt.Errorf("failed to reload fetch export: %w", err)
	}
	return &stored, nil
}

// CreateWithExpenses creates one export unit and attaches its expense lines
func (r *AccountingExportRepository) CreateWithExpenses(ctx context.Context, export *models.AccountingExport, expenses []models.Expense) error {
	if export.ID == "" {
		export.ID = uuid.New().String()
	}
	export.Expenses = expenses
	result := r.db.WithContext(ctx).Create(export)
	if result.Error != nil {
		return fmt.Errorf("failed to create accounting export: %w", result.Error)
	}
	return nil
}

// ListExportableIDs returns exports for a fund source that are neither mid
// flight nor already exported, ordered oldest first
func (r *AccountingExportRepository) ListExportableIDs(ctx context.Context, workspaceID string, fundSource string) ([]string, error) {
	var ids []string
	result := r.db.WithContext(ctx).Model(&models.AccountingExport{}).
		Where("workspace_id = ? AND fund_source = ? AND exported_at IS NULL", workspaceID, fundSource).
		Where("status NOT IN ?", []string{models.ExportStatusInProgress, models.ExportStatusComplete, models.ExportStatusEnqueued}).
		Where("type NOT IN ?", models.FetchExportTypes).
		Order("created_at ASC").
		Pluck("id", &ids)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list exportable exports: %w", result.Error)
	}
	return ids, nil
}

// MarkEnqueued flips an export to ENQUEUED with its outbound document type
func (r *AccountingExportRepository) MarkEnqueued(ctx context.Context, exportID string, exportType string) error {
	result := r.db.WithContext(ctx).Model(&models.AccountingExport{}).
		Where("id = ?", exportID).
		Updates(map[string]interface{}{
			"type":       exportType,
			"status":     models.ExportStatusEnqueued,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to enqueue accounting export: %w", result.Error)
	}
	return nil
}

// UpdateStatus persists a status transition along with detail/error payloads
func (r *AccountingExportRepository) UpdateStatus(ctx context.Context, export *models.AccountingExport) error {
	result := r.db.WithContext(ctx).Model(&models.AccountingExport{}).
		Where("id = ?", export.ID).
		Updates(map[string]interface{}{
			"status":                  export.Status,
			"detail":                  export.Detail,
			"business_central_errors": export.BusinessCentralErrors,
			"exported_at":             export.ExportedAt,
			"updated_at":              time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update accounting export: %w", result.Error)
	}
	return nil
}

// CountByStatuses counts non-fetch exports for a workspace in the given statuses
func (r *AccountingExportRepository) CountByStatuses(ctx context.Context, workspaceID string, statuses []string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.AccountingExport{}).
		Where("workspace_id = ? AND status IN ?", workspaceID, statuses).
		Where("type NOT IN ?", models.FetchExportTypes).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count accounting exports: %w", result.Error)
	}
	return count, nil
}

// UpsertSummary writes the per-workspace summary aggregate
func (r *AccountingExportRepository) UpsertSummary(ctx context.Context, summary *models.AccountingExportSummary) error {
	if summary.ID == "" {
		summary.ID = uuid.New().String()
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "workspace_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_exported_at":                   summary.LastExportedAt,
			"next_export_at":                     summary.NextExportAt,
			"export_mode":                        summary.ExportMode,
			"total_accounting_export_count":      summary.TotalAccountingExportCount,
			"successful_accounting_export_count": summary.SuccessfulAccountingExportCount,
			"failed_accounting_export_count":     summary.FailedAccountingExportCount,
			"updated_at":                         time.Now(),
		}),
	}).Create(summary)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert accounting export summary: %w", result.Error)
	}
	return nil
}

// GetSummary retrieves the summary aggregate for a workspace
func (r *AccountingExportRepository) GetSummary(ctx context.Context, workspaceID string) (*models.AccountingExportSummary, error) {
	var summary models.AccountingExportSummary
	result := r.db.WithContext(ctx).First(&summary, "workspace_id = ?", workspaceID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get accounting export summary: %w", result.Error)
	}
	return &summary, nil
}
