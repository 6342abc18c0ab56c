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
	ErrWorkspaceNotFound                  = errors.New("workspace not found")
	ErrFyleCredentialsNotFound            = errors.New("fyle credentials not found")
	ErrBusinessCentralCredentialsNotFound = errors.New("business central credentials not found")
)

type WorkspaceRepository struct {
	db *gorm.DB
}

func NewWorkspaceRepository(db *gorm.DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *WorkspaceRepository) WithTx(tx *gorm.DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: tx}
}

// GetByID retrieves a workspace by ID
func (r *WorkspaceRepository) GetByID(ctx context.Context, workspaceID string) (*models.Workspace, error) {
	var workspace models.Workspace
	result := r.db.WithContext(ctx).First(&workspace, "id = ?", workspaceID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to get workspace: %w", result.Error)
	}
	return &workspace, nil
}

// GetFyleCredentials retrieves the Fyle credentials for a workspace
func (r *WorkspaceRepository) GetFyleCredentials(ctx context.Context, workspaceID string) (*models.FyleCredentials, error) {
	var creds models.FyleCredentials
	result := r.db.WithContext(ctx).First(&creds, "workspace_id = ?", workspaceID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrFyleCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to get fyle credentials: %w", result.Error)
	}
	return &creds, nil
}

// GetActiveBusinessCentralCredentials retrieves non-expired Business Central
// credentials with a refresh token present. Expired credentials are treated
// the same as missing ones so exports fail fast until re-authorization.
func (r *WorkspaceRepository) GetActiveBusinessCentralCredentials(ctx context.Context, workspaceID string) (*models.BusinessCentralCredentials, error) {
	var creds models.BusinessCentralCredentials
	result := r.db.WithContext(ctx).
		Where("workspace_id = ? AND is_expired = ? AND refresh_token IS NOT NULL", workspaceID, false).
		First(&creds)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrBusinessCentralCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to get business central credentials: %w", result.Error)
	}
	return &creds, nil
}

// ExpireBusinessCentralCredentials marks the stored credentials expired and
// clears the refresh token, forcing re-auth on the next attempt
func (r *WorkspaceRepository) ExpireBusinessCentralCredentials(ctx context.Context, workspaceID string) error {
	result := r.db.WithContext(ctx).Model(&models.BusinessCentralCredentials{}).
		Where("workspace_id = ?", workspaceID).
		Updates(map[string]interface{}{
			"is_expired":    true,
			"refresh_token": nil,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to expire business central credentials: %w", result.Error)
	}
	return nil
}

// UpdateBusinessCentralRefreshToken persists a rotated refresh token
func (r *WorkspaceRepository) UpdateBusinessCentralRefreshToken(ctx context.Context, workspaceID string, refreshToken string) error {
	result := r.db.WithContext(ctx).Model(&models.BusinessCentralCredentials{}).
		Where("workspace_id = ?", workspaceID).
		Updates(map[string]interface{}{
			"refresh_token": refreshToken,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update refresh token: %w", result.Error)
	}
	return nil
}

// UpdateExpenseWatermark bumps the fund-source specific last-synced timestamp
func (r *WorkspaceRepository) UpdateExpenseWatermark(ctx context.Context, workspaceID string, fundSource string, syncedAt time.Time) error {
	column := "reimbursable_last_synced_at"
	if fundSource == models.FundSourceCCC {
		column = "credit_card_last_synced_at"
	}

	result := r.db.WithContext(ctx).Model(&models.Workspace{}).
		Where("id = ?", workspaceID).
		Updates(map[string]interface{}{
			column:       syncedAt,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update expense watermark: %w", result.Error)
	}
	return nil
}

// UpdateDestinationSyncedAt stamps the last destination dimension sync time
func (r *WorkspaceRepository) UpdateDestinationSyncedAt(ctx context.Context, workspaceID string, syncedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.Workspace{}).
		Where("id = ?", workspaceID).
		Updates(map[string]interface{}{
			"destination_synced_at": syncedAt,
			"updated_at":            time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update destination synced at: %w", result.Error)
	}
	return nil
}
