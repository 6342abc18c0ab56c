package models

import "time"

// Onboarding state constants
const (
	OnboardingConnection       = "CONNECTION"
	OnboardingCompanySelection = "COMPANY_SELECTION"
	OnboardingExportSettings   = "EXPORT_SETTINGS"
	OnboardingImportSettings   = "IMPORT_SETTINGS"
	OnboardingAdvancedConfig   = "ADVANCED_CONFIGURATION"
	OnboardingComplete         = "COMPLETE"
)

// Workspace is one connected Fyle org mapped to one Business Central company
type Workspace struct {
	ID                       string     `gorm:"column:id;primaryKey"`
	Name                     string     `gorm:"column:name"`
	OrgID                    string     `gorm:"column:org_id;uniqueIndex"`
	ClusterDomain            *string    `gorm:"column:cluster_domain"`
	BusinessCentralCompanyID *string    `gorm:"column:business_central_company_id"`
	BusinessCentralCompany   *string    `gorm:"column:business_central_company_name"`
	OnboardingState          string     `gorm:"column:onboarding_state"`
	ReimbursableLastSyncedAt *time.Time `gorm:"column:reimbursable_last_synced_at"`
	CreditCardLastSyncedAt   *time.Time `gorm:"column:credit_card_last_synced_at"`
	SourceSyncedAt           *time.Time `gorm:"column:source_synced_at"`
	DestinationSyncedAt      *time.Time `gorm:"column:destination_synced_at"`
	CreatedAt                time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Workspace) TableName() string {
	return "workspaces"
}

// FyleCredentials holds the refresh token used to talk to the Fyle platform
type FyleCredentials struct {
	ID            string    `gorm:"column:id;primaryKey"`
	WorkspaceID   string    `gorm:"column:workspace_id;uniqueIndex"`
	RefreshToken  string    `gorm:"column:refresh_token"`
	ClusterDomain *string   `gorm:"column:cluster_domain"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (FyleCredentials) TableName() string {
	return "fyle_credentials"
}

// BusinessCentralCredentials holds the Dynamics refresh token per workspace.
// IsExpired is flipped on InvalidTokenError so subsequent exports fail fast
// with a configuration error until the workspace re-authorizes.
type BusinessCentralCredentials struct {
	ID           string    `gorm:"column:id;primaryKey"`
	WorkspaceID  string    `gorm:"column:workspace_id;uniqueIndex"`
	RefreshToken *string   `gorm:"column:refresh_token"`
	IsExpired    bool      `gorm:"column:is_expired"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (BusinessCentralCredentials) TableName() string {
	return "business_central_credentials"
}
