package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fund source constants
const (
	FundSourcePersonal = "PERSONAL"
	FundSourceCCC      = "CCC"
)

// Fyle source account types per fund source
const (
	SourceAccountPersonalCash = "PERSONAL_CASH_ACCOUNT"
	SourceAccountCorporateCC  = "PERSONAL_CORPORATE_CREDIT_CARD_ACCOUNT"
)

// Expense states on the Fyle platform
const (
	ExpenseStateApproved          = "APPROVED"
	ExpenseStatePaymentProcessing = "PAYMENT_PROCESSING"
	ExpenseStatePaid              = "PAID"
)

// Expense is a snapshot of a single Fyle expense line item. Owned by the
// fetch stage; read-only afterwards except for the is_skipped marker.
type Expense struct {
	ID                  string           `gorm:"column:id;primaryKey"`
	WorkspaceID         string           `gorm:"column:workspace_id;index"`
	EmployeeEmail       string           `gorm:"column:employee_email"`
	EmployeeName        *string          `gorm:"column:employee_name"`
	Category            *string          `gorm:"column:category"`
	SubCategory         *string          `gorm:"column:sub_category"`
	Project             *string          `gorm:"column:project"`
	ExpenseID           string           `gorm:"column:expense_id;uniqueIndex"`
	OrgID               string           `gorm:"column:org_id"`
	ExpenseNumber       string           `gorm:"column:expense_number"`
	ClaimNumber         string           `gorm:"column:claim_number"`
	Amount              decimal.Decimal  `gorm:"column:amount;type:numeric(20,6)"`
	Currency            string           `gorm:"column:currency"`
	ForeignAmount       *decimal.Decimal `gorm:"column:foreign_amount;type:numeric(20,6)"`
	ForeignCurrency     *string          `gorm:"column:foreign_currency"`
	TaxAmount           *decimal.Decimal `gorm:"column:tax_amount;type:numeric(20,6)"`
	TaxGroupID          *string          `gorm:"column:tax_group_id"`
	SettlementID        *string          `gorm:"column:settlement_id"`
	Reimbursable        bool             `gorm:"column:reimbursable"`
	State               string           `gorm:"column:state"`
	Vendor              *string          `gorm:"column:vendor"`
	CostCenter          *string          `gorm:"column:cost_center"`
	CorporateCardID     *string          `gorm:"column:corporate_card_id"`
	Purpose             *string          `gorm:"column:purpose"`
	ReportID            string           `gorm:"column:report_id;index"`
	Billable            bool             `gorm:"column:billable"`
	FundSource          string           `gorm:"column:fund_source;index"`
	FileIDs             StringList       `gorm:"column:file_ids;type:jsonb"`
	CustomProperties    JSONB            `gorm:"column:custom_properties;type:jsonb"`
	SpentAt             *time.Time       `gorm:"column:spent_at"`
	ApprovedAt          *time.Time       `gorm:"column:approved_at"`
	PostedAt            *time.Time       `gorm:"column:posted_at"`
	VerifiedAt          *time.Time       `gorm:"column:verified_at"`
	ExpenseCreatedAt    *time.Time       `gorm:"column:expense_created_at"`
	ExpenseUpdatedAt    *time.Time       `gorm:"column:expense_updated_at"`
	Exported            bool             `gorm:"column:exported"`
	IsSkipped           bool             `gorm:"column:is_skipped"`
	PreviousExportState *string          `gorm:"column:previous_export_state"`
	CreatedAt           time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Expense) TableName() string {
	return "expenses"
}

// EffectiveCategory applies the category / sub-category join rule used by
// both the validator and the line-item builders: the sub-category is folded
// in only when it exists and differs from the category.
func (e Expense) EffectiveCategory() string {
	category := ""
	if e.Category != nil {
		category = *e.Category
	}
	if e.SubCategory == nil || *e.SubCategory == "" || *e.SubCategory == category {
		return category
	}
	return category + " / " + *e.SubCategory
}

// VendorName returns the merchant string, or "" when absent.
func (e Expense) VendorName() string {
	if e.Vendor == nil {
		return ""
	}
	return *e.Vendor
}
