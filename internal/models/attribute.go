package models

import "time"

// Source (Fyle) attribute types
const (
	AttributeTypeEmployee   = "EMPLOYEE"
	AttributeTypeCategory   = "CATEGORY"
	AttributeTypeProject    = "PROJECT"
	AttributeTypeCostCenter = "COST_CENTER"
	AttributeTypeMerchant   = "MERCHANT"
)

// Destination (Business Central) attribute types
const (
	DestinationTypeCompany     = "COMPANY"
	DestinationTypeAccount     = "ACCOUNT"
	DestinationTypeVendor      = "VENDOR"
	DestinationTypeEmployeeBC  = "EMPLOYEE"
	DestinationTypeLocation    = "LOCATION"
	DestinationTypeBankAccount = "BANK_ACCOUNT"
	DestinationTypeDimension   = "DIMENSION"
)

// ExpenseAttribute is one distinct value seen on the Fyle side for a dimension
type ExpenseAttribute struct {
	ID            string    `gorm:"column:id;primaryKey"`
	WorkspaceID   string    `gorm:"column:workspace_id;index:idx_expense_attribute_scope,unique"`
	AttributeType string    `gorm:"column:attribute_type;index:idx_expense_attribute_scope,unique"`
	DisplayName   string    `gorm:"column:display_name"`
	Value         string    `gorm:"column:value;index:idx_expense_attribute_scope,unique"`
	SourceID      *string   `gorm:"column:source_id"`
	Active        bool      `gorm:"column:active"`
	AutoMapped    bool      `gorm:"column:auto_mapped"`
	AutoCreated   bool      `gorm:"column:auto_created"`
	Detail        JSONB     `gorm:"column:detail;type:jsonb"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (ExpenseAttribute) TableName() string {
	return "expense_attributes"
}

// DestinationAttribute is one distinct value/id on the Business Central side
type DestinationAttribute struct {
	ID            string    `gorm:"column:id;primaryKey"`
	WorkspaceID   string    `gorm:"column:workspace_id;index:idx_destination_attribute_scope,unique"`
	AttributeType string    `gorm:"column:attribute_type;index:idx_destination_attribute_scope,unique"`
	DisplayName   string    `gorm:"column:display_name"`
	Value         string    `gorm:"column:value"`
	DestinationID string    `gorm:"column:destination_id;index:idx_destination_attribute_scope,unique"`
	Active        bool      `gorm:"column:active"`
	Detail        JSONB     `gorm:"column:detail;type:jsonb"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (DestinationAttribute) TableName() string {
	return "destination_attributes"
}

// Mapping pairs one source attribute value with one destination attribute,
// scoped by (source_type, destination_type, workspace). Exactly one active
// mapping may exist per (source value, source_type, destination_type,
// workspace), enforced by a unique index.
type Mapping struct {
	ID              string    `gorm:"column:id;primaryKey"`
	WorkspaceID     string    `gorm:"column:workspace_id;index:idx_mapping_scope,unique"`
	SourceType      string    `gorm:"column:source_type;index:idx_mapping_scope,unique"`
	DestinationType string    `gorm:"column:destination_type;index:idx_mapping_scope,unique"`
	SourceID        string    `gorm:"column:source_id;index:idx_mapping_scope,unique"`
	DestinationID   string    `gorm:"column:destination_id"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`

	Source      *ExpenseAttribute     `gorm:"foreignKey:SourceID"`
	Destination *DestinationAttribute `gorm:"foreignKey:DestinationID"`
}

// TableName specifies the table name for GORM
func (Mapping) TableName() string {
	return "mappings"
}

// EmployeeMapping is the specialized employee pair table: one source employee
// resolved to a destination employee and/or vendor.
type EmployeeMapping struct {
	ID                    string    `gorm:"column:id;primaryKey"`
	WorkspaceID           string    `gorm:"column:workspace_id;index"`
	SourceEmployeeID      string    `gorm:"column:source_employee_id;uniqueIndex"`
	DestinationEmployeeID *string   `gorm:"column:destination_employee_id"`
	DestinationVendorID   *string   `gorm:"column:destination_vendor_id"`
	CreatedAt             time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time `gorm:"column:updated_at;autoUpdateTime"`

	SourceEmployee      *ExpenseAttribute     `gorm:"foreignKey:SourceEmployeeID"`
	DestinationEmployee *DestinationAttribute `gorm:"foreignKey:DestinationEmployeeID"`
	DestinationVendor   *DestinationAttribute `gorm:"foreignKey:DestinationVendorID"`
}

// TableName specifies the table name for GORM
func (EmployeeMapping) TableName() string {
	return "employee_mappings"
}

// CategoryMapping is the specialized category → account pair table
type CategoryMapping struct {
	ID                   string    `gorm:"column:id;primaryKey"`
	WorkspaceID          string    `gorm:"column:workspace_id;index"`
	SourceCategoryID     string    `gorm:"column:source_category_id;uniqueIndex"`
	DestinationAccountID *string   `gorm:"column:destination_account_id"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime"`

	SourceCategory     *ExpenseAttribute     `gorm:"foreignKey:SourceCategoryID"`
	DestinationAccount *DestinationAttribute `gorm:"foreignKey:DestinationAccountID"`
}

// TableName specifies the table name for GORM
func (CategoryMapping) TableName() string {
	return "category_mappings"
}

// MappingSetting is one configured dimension pairing for a workspace
// (e.g. PROJECT → LOCATION, COST_CENTER → DIMENSION, custom field → DIMENSION)
type MappingSetting struct {
	ID               string    `gorm:"column:id;primaryKey"`
	WorkspaceID      string    `gorm:"column:workspace_id;index:idx_mapping_setting_scope,unique"`
	SourceField      string    `gorm:"column:source_field;index:idx_mapping_setting_scope,unique"`
	DestinationField string    `gorm:"column:destination_field;index:idx_mapping_setting_scope,unique"`
	ImportToFyle     bool      `gorm:"column:import_to_fyle"`
	IsCustom         bool      `gorm:"column:is_custom"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (MappingSetting) TableName() string {
	return "mapping_settings"
}
