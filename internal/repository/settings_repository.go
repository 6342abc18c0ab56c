package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyle-integrations/business-central-worker/internal/models"
	"gorm.io/gorm"
)

var (
	ErrExportSettingNotFound   = errors.New("export setting not found")
	ErrImportSettingNotFound   = errors.New("import setting not found")
	ErrAdvancedSettingNotFound = errors.New("advanced setting not found")
)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetExportSetting retrieves the export settings for a workspace
func (r *SettingsRepository) GetExportSetting(ctx context.Context, workspaceID string) (*models.ExportSetting, error) {
	var setting models.ExportSetting
	result := r.db.WithContext(ctx).First(&setting, "workspace_id = ?", workspaceID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrExportSettingNotFound
		}
		return nil, fmt.Errorf("failed to get export setting: %w", result.Error)
	}
	return &setting, nil
}

// GetImportSetting retrieves the import settings for a workspace
func (r *SettingsRepository) GetImportSetting(ctx context.Context, workspaceID string) (*models.ImportSetting, error) {
	var setting models.ImportSetting
	result := r.db.WithContext(ctx).First(&setting, "workspace_id = ?", workspaceID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrImportSettingNotFound
		}
		return nil, fmt.Errorf("failed to get import setting: %w", result.Error)
	}
	return &setting, nil
}

// GetAdvancedSetting retrieves the advanced settings for a workspace
func (r *SettingsRepository) GetAdvancedSetting(ctx context.Context, workspaceID string) (*models.AdvancedSetting, error) {
	var setting models.AdvancedSetting
	result := r.db.WithContext(ctx).First(&setting, "workspace_id = ?", workspaceID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAdvancedSettingNotFound
		}
		return nil, fmt.Errorf("failed to get advanced setting: %w", result.Error)
	}
	return &setting, nil
}

// ListScheduledWorkspaceIDs returns workspaces whose auto-export schedule is
// enabled and due to run
func (r *SettingsRepository) ListScheduledWorkspaceIDs(ctx context.Context, now time.Time) ([]string, error) {
	var workspaceIDs []string
	result := r.db.WithContext(ctx).Model(&models.AdvancedSetting{}).
		Where("schedule_is_enabled = ? AND interval_hours IS NOT NULL AND (next_run_at IS NULL OR next_run_at <= ?)", true, now).
		Pluck("workspace_id", &workspaceIDs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list scheduled workspaces: %w", result.Error)
	}
	return workspaceIDs, nil
}

// GetNextRunInterval returns the configured schedule interval in hours
func (r *SettingsRepository) GetNextRunInterval(ctx context.Context, workspaceID string) (int, error) {
	setting, err := r.GetAdvancedSetting(ctx, workspaceID)
	if err != nil {
		return 0, err
	}
	if setting.IntervalHours == nil {
		return 0, fmt.Errorf("workspace %s has no schedule interval configured", workspaceID)
	}
	return *setting.IntervalHours, nil
}

// StampNextRun advances the next scheduled run for a workspace by its
// configured interval
func (r *SettingsRepository) StampNextRun(ctx context.Context, workspaceID string, nextRunAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.AdvancedSetting{}).
		Where("workspace_id = ?", workspaceID).
		Updates(map[string]interface{}{
			"next_run_at": nextRunAt,
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to stamp next run: %w", result.Error)
	}
	return nil
}
