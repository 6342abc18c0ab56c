package models

import "time"

// Accounting export status state machine
const (
	ExportStatusEnqueued    = "ENQUEUED"
	ExportStatusInProgress  = "IN_PROGRESS"
	ExportStatusExportReady = "EXPORT_READY"
	ExportStatusComplete    = "COMPLETE"
	ExportStatusFailed      = "FAILED"
	ExportStatusFatal       = "FATAL"
)

// Accounting export types
const (
	ExportTypeInvoices             = "INVOICES"
	ExportTypeJournalEntry         = "JOURNAL_ENTRY"
	ExportTypePurchaseInvoice      = "PURCHASE_INVOICE"
	ExportTypeFetchingReimbursable = "FETCHING_REIMBURSABLE_EXPENSES"
	ExportTypeFetchingCreditCard   = "FETCHING_CREDIT_CARD_EXPENSES"
)

// FetchExportTypes are the inbound fetch jobs, excluded from summary counts
var FetchExportTypes = []string{ExportTypeFetchingReimbursable, ExportTypeFetchingCreditCard}

// Export mode constants for the summary aggregate
const (
	ExportModeManual = "MANUAL"
	ExportModeAuto   = "AUTO"
)

// AccountingExport is one unit of outbound (or inbound-fetch) work tracked
// through the status lifecycle. Never hard-deleted; kept as audit trail.
type AccountingExport struct {
	ID                    string     `gorm:"column:id;primaryKey"`
	WorkspaceID           string     `gorm:"column:workspace_id;index"`
	Type                  string     `gorm:"column:type;index"`
	FundSource            string     `gorm:"column:fund_source"`
	Status                string     `gorm:"column:status;index"`
	Description           JSONB      `gorm:"column:description;type:jsonb"`
	Detail                JSONB      `gorm:"column:detail;type:jsonb"`
	BusinessCentralErrors JSONB      `gorm:"column:business_central_errors;type:jsonb"`
	ExportedAt            *time.Time `gorm:"column:exported_at"`
	Expenses              []Expense  `gorm:"many2many:accounting_export_expenses"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (AccountingExport) TableName() string {
	return "accounting_exports"
}

// IsFetch reports whether this export is an inbound expense-fetch job.
func (a AccountingExport) IsFetch() bool {
	return a.Type == ExportTypeFetchingReimbursable || a.Type == ExportTypeFetchingCreditCard
}

// AccountingExportSummary is the per-workspace aggregate read by dashboards:
// counts of failed vs successful non-fetch exports, refreshed unconditionally
// after every export attempt.
type AccountingExportSummary struct {
	ID                              string     `gorm:"column:id;primaryKey"`
	WorkspaceID                     string     `gorm:"column:workspace_id;uniqueIndex"`
	LastExportedAt                  *time.Time `gorm:"column:last_exported_at"`
	NextExportAt                    *time.Time `gorm:"column:next_export_at"`
	ExportMode                      *string    `gorm:"column:export_mode"`
	TotalAccountingExportCount      int        `gorm:"column:total_accounting_export_count"`
	SuccessfulAccountingExportCount int        `gorm:"column:successful_accounting_export_count"`
	FailedAccountingExportCount     int        `gorm:"column:failed_accounting_export_count"`
	CreatedAt                       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (AccountingExportSummary) TableName() string {
	return "accounting_export_summary"
}
