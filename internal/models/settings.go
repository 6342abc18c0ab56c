package models

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidExportSetting is returned when choice fields pass individually but
// violate a cross-field rule (e.g. purchase invoices with employee mapping).
var ErrInvalidExportSetting = errors.New("employee mapping should be VENDOR for purchase invoice export")

// Reimbursable expense export types
const (
	ReimbursableExportPurchaseInvoice = "PURCHASE_INVOICE"
	ReimbursableExportJournalEntry    = "JOURNAL_ENTRY"
)

// Credit card expense export types
const (
	CreditCardExportJournalEntry = "JOURNAL_ENTRY"
)

// Employee field mapping choices: which destination entity a Fyle employee maps to
const (
	EmployeeFieldMappingEmployee = "EMPLOYEE"
	EmployeeFieldMappingVendor   = "VENDOR"
)

// Name-in-journal-entry choices for credit card expenses
const (
	NameInJournalEntryEmployee = "EMPLOYEE"
	NameInJournalEntryMerchant = "MERCHANT"
)

// Expense grouping choices
const (
	GroupByReport  = "REPORT"
	GroupByExpense = "EXPENSE"
)

// ExportSetting controls which document type to build per fund source,
// grouping rules and default destination accounts/vendors.
type ExportSetting struct {
	ID          string `gorm:"column:id;primaryKey"`
	WorkspaceID string `gorm:"column:workspace_id;uniqueIndex"`

	ReimbursableExpensesExportType *string `gorm:"column:reimbursable_expenses_export_type" validate:"omitempty,oneof=PURCHASE_INVOICE JOURNAL_ENTRY"`
	ReimbursableExpenseState       *string `gorm:"column:reimbursable_expense_state" validate:"omitempty,oneof=PAYMENT_PROCESSING PAID"`
	ReimbursableExpenseGroupedBy   *string `gorm:"column:reimbursable_expense_grouped_by" validate:"omitempty,oneof=REPORT EXPENSE"`
	ReimbursableExpenseDate        *string `gorm:"column:reimbursable_expense_date"`

	CreditCardExpenseExportType *string `gorm:"column:credit_card_expense_export_type" validate:"omitempty,oneof=JOURNAL_ENTRY"`
	CreditCardExpenseState      *string `gorm:"column:credit_card_expense_state" validate:"omitempty,oneof=APPROVED PAYMENT_PROCESSING PAID"`
	CreditCardExpenseGroupedBy  *string `gorm:"column:credit_card_expense_grouped_by" validate:"omitempty,oneof=REPORT EXPENSE"`
	CreditCardExpenseDate       *string `gorm:"column:credit_card_expense_date"`

	EmployeeFieldMapping string `gorm:"column:employee_field_mapping" validate:"required,oneof=EMPLOYEE VENDOR"`
	NameInJournalEntry   string `gorm:"column:name_in_journal_entry" validate:"required,oneof=EMPLOYEE MERCHANT"`
	AutoMapEmployees     bool   `gorm:"column:auto_map_employees"`

	DefaultBankAccountName    *string `gorm:"column:default_bank_account_name"`
	DefaultBankAccountID      *string `gorm:"column:default_bank_account_id"`
	DefaultCCCBankAccountName *string `gorm:"column:default_ccc_bank_account_name"`
	DefaultCCCBankAccountID   *string `gorm:"column:default_ccc_bank_account_id"`
	DefaultVendorName         *string `gorm:"column:default_vendor_name"`
	DefaultVendorID           *string `gorm:"column:default_vendor_id"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (ExportSetting) TableName() string {
	return "export_settings"
}

var settingsValidator = validator.New()

// Validate checks the configured choice fields plus the cross-field rules the
// configuration endpoints enforce: purchase-invoice export requires vendor
// employee mapping, and merchant naming only applies to journal entries.
func (s ExportSetting) Validate() error {
	if err := settingsValidator.Struct(s); err != nil {
		return err
	}
	if s.ReimbursableExpensesExportType != nil &&
		*s.ReimbursableExpensesExportType == ReimbursableExportPurchaseInvoice &&
		s.EmployeeFieldMapping != EmployeeFieldMappingVendor {
		return ErrInvalidExportSetting
	}
	return nil
}

// ImportSetting toggles which Business Central dimensions are imported to Fyle
type ImportSetting struct {
	ID                       string    `gorm:"column:id;primaryKey"`
	WorkspaceID              string    `gorm:"column:workspace_id;uniqueIndex"`
	ImportCategories         bool      `gorm:"column:import_categories"`
	ImportVendorsAsMerchants bool      `gorm:"column:import_vendors_as_merchants"`
	CreatedAt                time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (ImportSetting) TableName() string {
	return "import_settings"
}

// Expense memo structure field names accepted by the purpose/comment builders
const (
	MemoFieldEmployeeEmail = "employee_email"
	MemoFieldMerchant      = "merchant"
	MemoFieldCategory      = "category"
	MemoFieldPurpose       = "purpose"
	MemoFieldReportNumber  = "report_number"
	MemoFieldSpentOn       = "spent_on"
	MemoFieldExpenseLink   = "expense_link"
)

// AdvancedSetting holds memo structure, auto-export schedule and vendor
// auto-creation policy for a workspace.
type AdvancedSetting struct {
	ID                   string     `gorm:"column:id;primaryKey"`
	WorkspaceID          string     `gorm:"column:workspace_id;uniqueIndex"`
	ExpenseMemoStructure StringList `gorm:"column:expense_memo_structure;type:jsonb"`
	ScheduleIsEnabled    bool       `gorm:"column:schedule_is_enabled"`
	ScheduleStartAt      *time.Time `gorm:"column:schedule_start_datetime"`
	IntervalHours        *int       `gorm:"column:interval_hours"`
	NextRunAt            *time.Time `gorm:"column:next_run_at"`
	EmailsSelected       StringList `gorm:"column:emails_selected;type:jsonb"`
	EmailsAdded          StringList `gorm:"column:emails_added;type:jsonb"`
	AutoCreateVendor     bool       `gorm:"column:auto_create_vendor"`
	CreatedAt            time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (AdvancedSetting) TableName() string {
	return "advanced_settings"
}
