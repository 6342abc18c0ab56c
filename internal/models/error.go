package models

import "time"

// Error type constants
const (
	ErrorTypeEmployeeMapping      = "EMPLOYEE_MAPPING"
	ErrorTypeCategoryMapping      = "CATEGORY_MAPPING"
	ErrorTypeBusinessCentralError = "BUSINESS_CENTRAL_ERROR"
)

// Error is one row per distinct failure scope (workspace + expense attribute,
// or workspace + accounting export). Recurrence increments RepetitionCount
// instead of creating a duplicate row; a successful post resolves every open
// row tied to the export.
type Error struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	WorkspaceID        string    `gorm:"column:workspace_id;index"`
	Type               string    `gorm:"column:type"`
	AccountingExportID *string   `gorm:"column:accounting_export_id;index"`
	ExpenseAttributeID *string   `gorm:"column:expense_attribute_id"`
	ErrorTitle         string    `gorm:"column:error_title"`
	ErrorDetail        string    `gorm:"column:error_detail"`
	IsResolved         bool      `gorm:"column:is_resolved;index"`
	RepetitionCount    int       `gorm:"column:repetition_count"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Error) TableName() string {
	return "errors"
}
