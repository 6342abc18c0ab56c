package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalEntry is the regenerable staging row holding the fully-resolved
// payload fields for one journal-entry accounting export. Rebuilding for the
// same export overwrites the same row.
type JournalEntry struct {
	ID                       string          `gorm:"column:id;primaryKey"`
	WorkspaceID              string          `gorm:"column:workspace_id;index"`
	AccountingExportID       string          `gorm:"column:accounting_export_id;uniqueIndex"`
	AccountsPayableAccountID *string         `gorm:"column:accounts_payable_account_id"`
	AccountID                *string         `gorm:"column:account_id"`
	AccountType              *string         `gorm:"column:account_type"`
	Amount                   decimal.Decimal `gorm:"column:amount;type:numeric(20,6)"`
	Comment                  string          `gorm:"column:comment"`
	Description              *string         `gorm:"column:description"`
	InvoiceDate              string          `gorm:"column:invoice_date"`
	DocumentNumber           string          `gorm:"column:document_number"`
	CreatedAt                time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (JournalEntry) TableName() string {
	return "journal_entries"
}

// JournalEntryLineItem is one resolved journal line for one expense.
// DimensionSuccessLog / DimensionErrorLog record the per-line outcome of the
// dimension-set second pass; a dimension failure never fails the document.
type JournalEntryLineItem struct {
	ID                       string          `gorm:"column:id;primaryKey"`
	WorkspaceID              string          `gorm:"column:workspace_id;index"`
	JournalEntryID           string          `gorm:"column:journal_entry_id;index:idx_journal_entry_line_scope,unique"`
	ExpenseID                string          `gorm:"column:expense_id;index:idx_journal_entry_line_scope,unique"`
	AccountsPayableAccountID *string         `gorm:"column:accounts_payable_account_id"`
	AccountID                *string         `gorm:"column:account_id"`
	AccountType              *string         `gorm:"column:account_type"`
	Amount                   decimal.Decimal `gorm:"column:amount;type:numeric(20,6)"`
	Comment                  string          `gorm:"column:comment"`
	Description              *string         `gorm:"column:description"`
	InvoiceDate              string          `gorm:"column:invoice_date"`
	DocumentNumber           string          `gorm:"column:document_number"`
	LocationID               *string         `gorm:"column:location_id"`
	Dimensions               JSONBList       `gorm:"column:dimensions;type:jsonb"`
	DimensionSuccessLog      JSONBList       `gorm:"column:dimension_success_log;type:jsonb"`
	DimensionErrorLog        JSONBList       `gorm:"column:dimension_error_log;type:jsonb"`
	CreatedAt                time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (JournalEntryLineItem) TableName() string {
	return "journal_entries_lineitems"
}
