package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseInvoice is the staging row for one purchase-invoice accounting
// export header.
type PurchaseInvoice struct {
	ID                 string           `gorm:"column:id;primaryKey"`
	WorkspaceID        string           `gorm:"column:workspace_id;index"`
	AccountingExportID string           `gorm:"column:accounting_export_id;uniqueIndex"`
	VendorID           *string          `gorm:"column:vendor_id"`
	Amount             decimal.Decimal  `gorm:"column:amount;type:numeric(20,6)"`
	TaxAmount          *decimal.Decimal `gorm:"column:tax_amount;type:numeric(20,6)"`
	Code               *string          `gorm:"column:code"`
	Description        string           `gorm:"column:description"`
	InvoiceDate        string           `gorm:"column:invoice_date"`
	AccountingDate     *string          `gorm:"column:accounting_date"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (PurchaseInvoice) TableName() string {
	return "purchase_invoices"
}

// PurchaseInvoiceLineItem is one resolved invoice line for one expense
type PurchaseInvoiceLineItem struct {
	ID                       string           `gorm:"column:id;primaryKey"`
	WorkspaceID              string           `gorm:"column:workspace_id;index"`
	PurchaseInvoiceID        string           `gorm:"column:purchase_invoice_id;index:idx_purchase_invoice_line_scope,unique"`
	ExpenseID                string           `gorm:"column:expense_id;index:idx_purchase_invoice_line_scope,unique"`
	AccountsPayableAccountID *string          `gorm:"column:accounts_payable_account_id"`
	Amount                   decimal.Decimal  `gorm:"column:amount;type:numeric(20,6)"`
	TaxAmount                *decimal.Decimal `gorm:"column:tax_amount;type:numeric(20,6)"`
	Description              string           `gorm:"column:description"`
	LocationID               *string          `gorm:"column:location_id"`
	CreatedAt                time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (PurchaseInvoiceLineItem) TableName() string {
	return "purchase_invoice_lineitems"
}
