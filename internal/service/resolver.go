package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fyle-integrations/business-central-worker/internal/models"
)

// Account type labels attached to resolved account ids
const (
	AccountTypeVendor   = "Vendor"
	AccountTypeEmployee = "Employee"
)

// Destination fields excluded from the generic dimension pass; these carry
// the primary account/vendor/employee/location resolution instead.
var primaryDestinationFields = map[string]bool{
	"COMPANIES":     true,
	"ACCOUNTS":      true,
	"VENDORS":       true,
	"EMPLOYEES":     true,
	"LOCATIONS":     true,
	"BANK_ACCOUNTS": true,
	"COMPANY":       true,
	"ACCOUNT":       true,
	"VENDOR":        true,
	"EMPLOYEE":      true,
	"LOCATION":      true,
	"BANK_ACCOUNT":  true,
}

// MappingStore is the attribute-store lookup surface the resolver needs
type MappingStore interface {
	GetExpenseAttributeByDisplayName(ctx context.Context, workspaceID string, displayName string, value string) (*models.ExpenseAttribute, error)
	GetDestinationAttributeByValue(ctx context.Context, workspaceID string, attributeType string, value string) (*models.DestinationAttribute, error)
	GetMapping(ctx context.Context, workspaceID string, sourceType string, destinationType string, sourceValue string) (*models.Mapping, error)
	GetEmployeeMapping(ctx context.Context, workspaceID string, employeeEmail string) (*models.EmployeeMapping, error)
	GetCategoryMapping(ctx context.Context, workspaceID string, category string) (*models.CategoryMapping, error)
	ListMappingSettings(ctx context.Context, workspaceID string) ([]models.MappingSetting, error)
	GetMappingSettingByDestination(ctx context.Context, workspaceID string, destinationField string) (*models.MappingSetting, error)
}

// Resolver turns expenses plus workspace settings into destination ids.
// Lookups that find nothing return empty values, not errors; absence is
// surfaced by the validation gate.
type Resolver struct {
	mappingStore MappingStore
}

func NewResolver(mappingStore MappingStore) *Resolver {
	return &Resolver{mappingStore: mappingStore}
}

// GetAccountIDType resolves the debit-side account for one export, branching
// on (export type, fund source). Returns ("", "") when no mapping resolves.
func (r *Resolver) GetAccountIDType(ctx context.Context, accountingExport *models.AccountingExport, exportSettings *models.ExportSetting, merchant string) (string, string, error) {
	workspaceID := accountingExport.WorkspaceID
	employeeEmail := accountingExport.Description.GetString("employee_email")

	// Reimbursable purchase invoices always bill the employee's mapped vendor
	if accountingExport.FundSource == models.FundSourcePersonal &&
		exportSettings.ReimbursableExpensesExportType != nil &&
		*exportSettings.ReimbursableExpensesExportType == models.ReimbursableExportPurchaseInvoice {
		mapping, err := r.mappingStore.GetEmployeeMapping(ctx, workspaceID, employeeEmail)
		if err != nil {
			return "", "", err
		}
		if mapping != nil && mapping.DestinationVendor != nil {
			return AccountTypeVendor, mapping.DestinationVendor.DestinationID, nil
		}
		return "", "", nil
	}

	if accountingExport.FundSource == models.FundSourceCCC &&
		exportSettings.NameInJournalEntry == models.NameInJournalEntryMerchant {
		if merchant != "" {
			vendor, err := r.mappingStore.GetDestinationAttributeByValue(ctx, workspaceID, models.DestinationTypeVendor, merchant)
			if err != nil {
				return "", "", err
			}
			if vendor != nil {
				return AccountTypeVendor, vendor.DestinationID, nil
			}
		}
		if exportSettings.DefaultVendorID != nil && *exportSettings.DefaultVendorID != "" {
			return AccountTypeVendor, *exportSettings.DefaultVendorID, nil
		}
		return "", "", nil
	}

	mapping, err := r.mappingStore.GetEmployeeMapping(ctx, workspaceID, employeeEmail)
	if err != nil {
		return "", "", err
	}
	if mapping == nil {
		return "", "", nil
	}

	if exportSettings.EmployeeFieldMapping == models.EmployeeFieldMappingEmployee {
		if mapping.DestinationEmployee != nil {
			return AccountTypeEmployee, mapping.DestinationEmployee.DestinationID, nil
		}
		return "", "", nil
	}
	if mapping.DestinationVendor != nil {
		return AccountTypeVendor, mapping.DestinationVendor.DestinationID, nil
	}
	return "", "", nil
}

// GetLocationID resolves the configured location dimension for one expense.
// Empty return is the normal "no location configured" case.
func (r *Resolver) GetLocationID(ctx context.Context, accountingExport *models.AccountingExport, expense *models.Expense) (string, error) {
	setting, err := r.mappingStore.GetMappingSettingByDestination(ctx, accountingExport.WorkspaceID, models.DestinationTypeLocation)
	if err != nil {
		return "", err
	}
	if setting == nil {
		return "", nil
	}

	sourceValue := r.sourceValueFor(expense, *setting)
	if sourceValue == "" {
		return "", nil
	}

	// Custom-field sources are normalized through the attribute store before
	// the mapping lookup
	if setting.IsCustom {
		attribute, err := r.mappingStore.GetExpenseAttributeByDisplayName(ctx, accountingExport.WorkspaceID, setting.SourceField, sourceValue)
		if err != nil {
			return "", err
		}
		if attribute == nil {
			return "", nil
		}
		sourceValue = attribute.Value
	}

	mapping, err := r.mappingStore.GetMapping(ctx, accountingExport.WorkspaceID, setting.SourceField, models.DestinationTypeLocation, sourceValue)
	if err != nil {
		return "", err
	}
	if mapping == nil || mapping.Destination == nil {
		return "", nil
	}
	return mapping.Destination.DestinationID, nil
}

// sourceValueFor extracts the expense's value for one mapping setting source
// field: the built-in project/cost-center columns, or a custom property
// looked up by display name.
func (r *Resolver) sourceValueFor(expense *models.Expense, setting models.MappingSetting) string {
	switch setting.SourceField {
	case models.AttributeTypeProject:
		if expense.Project != nil {
			return *expense.Project
		}
		return ""
	case models.AttributeTypeCostCenter:
		if expense.CostCenter != nil {
			return *expense.CostCenter
		}
		return ""
	default:
		if value, ok := expense.CustomProperties[setting.SourceField]; ok {
			if s, ok := value.(string); ok {
				return s
			}
		}
		return ""
	}
}

// GetDimensionObjects collects the resolved dimension descriptors for one
// expense. Settings whose mapping cannot be resolved are silently skipped;
// partial dimension posting is acceptable.
func (r *Resolver) GetDimensionObjects(ctx context.Context, accountingExport *models.AccountingExport, expense *models.Expense) (models.JSONBList, error) {
	settings, err := r.mappingStore.ListMappingSettings(ctx, accountingExport.WorkspaceID)
	if err != nil {
		return nil, err
	}

	dimensions := models.JSONBList{}
	for _, setting := range settings {
		if primaryDestinationFields[setting.DestinationField] {
			continue
		}

		sourceValue := r.sourceValueFor(expense, setting)
		if sourceValue == "" {
			continue
		}

		mapping, err := r.mappingStore.GetMapping(ctx, accountingExport.WorkspaceID, setting.SourceField, setting.DestinationField, sourceValue)
		if err != nil {
			return nil, err
		}
		if mapping == nil || mapping.Destination == nil {
			continue
		}

		detail := mapping.Destination.Detail
		dimensions = append(dimensions, models.JSONB{
			"id":             detail.GetString("dimension_id"),
			"code":           mapping.Destination.DisplayName,
			"valueId":        mapping.Destination.DestinationID,
			"valueCode":      mapping.Destination.Value,
			"expense_number": expense.ExpenseNumber,
		})
	}

	return dimensions, nil
}

// GetExpensePurpose joins the configured memo fields with " - ", skipping
// fields whose value is empty
func GetExpensePurpose(expense *models.Expense, category string, advancedSetting *models.AdvancedSetting) string {
	return buildMemo(expense, category, advancedSetting.ExpenseMemoStructure, "")
}

// GetExpenseComment is the purpose string plus a deep link back to the
// expense on the Fyle app
func GetExpenseComment(clusterDomain string, orgID string, expense *models.Expense, category string, advancedSetting *models.AdvancedSetting) string {
	expenseLink := fmt.Sprintf("%s/app/main/#/enterprise/view_expense/%s?org_id=%s", clusterDomain, expense.ExpenseID, orgID)
	return buildMemo(expense, category, advancedSetting.ExpenseMemoStructure, expenseLink)
}

func buildMemo(expense *models.Expense, category string, memoStructure models.StringList, expenseLink string) string {
	details := map[string]string{
		models.MemoFieldEmployeeEmail: expense.EmployeeEmail,
		models.MemoFieldMerchant:      expense.VendorName(),
		models.MemoFieldCategory:      category,
		models.MemoFieldReportNumber:  expense.ClaimNumber,
		models.MemoFieldExpenseLink:   expenseLink,
	}
	if expense.Purpose != nil {
		details[models.MemoFieldPurpose] = *expense.Purpose
	}
	if expense.SpentAt != nil {
		details[models.MemoFieldSpentOn] = expense.SpentAt.Format("2006-01-02")
	}

	memo := ""
	for _, field := range memoStructure {
		value, ok := details[field]
		if !ok || value == "" {
			continue
		}
		if memo != "" {
			memo += " - "
		}
		memo += value
	}
	return memo
}

// Invoice date priority over the export's description bag. The ordering is a
// business policy; do not reorder.
var invoiceDateFields = []string{"spent_at", "approved_at", "verified_at", "last_spent_at", "posted_at"}

// GetInvoiceDate returns the first non-empty timestamp from the description
// bag in priority order, falling back to the current date
func GetInvoiceDate(accountingExport *models.AccountingExport) string {
	for _, field := range invoiceDateFields {
		if value := accountingExport.Description.GetString(field); value != "" {
			return value
		}
	}
	return time.Now().Format("2006-01-02")
}
