package service

import (
	"context"
	"fmt"

	"github.com/fyle-integrations/business-central-worker/internal/models"
)

// BulkError carries every validation problem found for one accounting export
// in a single error so callers can render them together.
type BulkError struct {
	Message string
	Items   []models.JSONB
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("%s (%d item(s))", e.Message, len(e.Items))
}

// ErrorLedger is the upsert-by-scope surface of the error repository
type ErrorLedger interface {
	UpsertByAttribute(ctx context.Context, workspaceID string, attributeID string, errorType string, title string, detail string) (*models.Error, error)
	UpsertByAccountingExport(ctx context.Context, workspaceID string, exportID string, errorType string, title string, detail string) (*models.Error, error)
	ResolveForExport(ctx context.Context, workspaceID string, exportID string) error
	GetUnresolvedForExport(ctx context.Context, workspaceID string, exportID string) (*models.Error, error)
	ResolveForAttributes(ctx context.Context, workspaceID string, attributeIDs []string) error
	ListUnresolvedByType(ctx context.Context, workspaceID string, errorType string) ([]models.Error, error)
}

// ValidatorMappingStore is the subset of mapping lookups the gate needs
type ValidatorMappingStore interface {
	GetExpenseAttribute(ctx context.Context, workspaceID string, attributeType string, value string) (*models.ExpenseAttribute, error)
	GetEmployeeMapping(ctx context.Context, workspaceID string, employeeEmail string) (*models.EmployeeMapping, error)
	GetCategoryMapping(ctx context.Context, workspaceID string, category string) (*models.CategoryMapping, error)
}

// Validator checks that every mapping an export depends on exists before any
// document is built. It writes to the error ledger but never touches the
// export's status.
type Validator struct {
	mappingStore ValidatorMappingStore
	errorLedger  ErrorLedger
}

func NewValidator(mappingStore ValidatorMappingStore, errorLedger ErrorLedger) *Validator {
	return &Validator{
		mappingStore: mappingStore,
		errorLedger:  errorLedger,
	}
}

// ValidateAccountingExport collects every missing category and employee
// mapping into one BulkError. A nil return means the export is buildable.
func (v *Validator) ValidateAccountingExport(ctx context.Context, accountingExport *models.AccountingExport, exportSettings *models.ExportSetting) error {
	items := []models.JSONB{}

	categoryItems, err := v.validateCategoryMappings(ctx, accountingExport)
	if err != nil {
		return err
	}
	items = append(items, categoryItems...)

	employeeItems, err := v.validateEmployeeMapping(ctx, accountingExport, exportSettings)
	if err != nil {
		return err
	}
	items = append(items, employeeItems...)

	if len(items) > 0 {
		return &BulkError{Message: "Mappings are missing", Items: items}
	}
	return nil
}

func (v *Validator) validateCategoryMappings(ctx context.Context, accountingExport *models.AccountingExport) ([]models.JSONB, error) {
	items := []models.JSONB{}

	for row, expense := range accountingExport.Expenses {
		category := expense.EffectiveCategory()

		mapping, err := v.mappingStore.GetCategoryMapping(ctx, accountingExport.WorkspaceID, category)
		if err != nil {
			return nil, err
		}
		if mapping != nil && mapping.DestinationAccount != nil {
			continue
		}

		items = append(items, models.JSONB{
			"row":                  row,
			"accounting_export_id": accountingExport.ID,
			"value":                category,
			"type":                 "Category Mapping",
			"message":              "Category Mapping not found",
		})

		attribute, err := v.mappingStore.GetExpenseAttribute(ctx, accountingExport.WorkspaceID, models.AttributeTypeCategory, category)
		if err != nil {
			return nil, err
		}
		if attribute != nil {
			if _, err := v.errorLedger.UpsertByAttribute(
				ctx, accountingExport.WorkspaceID, attribute.ID,
				models.ErrorTypeCategoryMapping, attribute.Value, "Category mapping is missing",
			); err != nil {
				return nil, err
			}
		}
	}

	return items, nil
}

func (v *Validator) validateEmployeeMapping(ctx context.Context, accountingExport *models.AccountingExport, exportSettings *models.ExportSetting) ([]models.JSONB, error) {
	employeeEmail := accountingExport.Description.GetString("employee_email")

	mapping, err := v.mappingStore.GetEmployeeMapping(ctx, accountingExport.WorkspaceID, employeeEmail)
	if err != nil {
		return nil, err
	}

	resolved := false
	if mapping != nil {
		if exportSettings.EmployeeFieldMapping == models.EmployeeFieldMappingEmployee {
			resolved = mapping.DestinationEmployee != nil
		} else {
			resolved = mapping.DestinationVendor != nil
		}
	}
	if resolved {
		return nil, nil
	}

	items := []models.JSONB{{
		"row":                  0,
		"accounting_export_id": accountingExport.ID,
		"value":                employeeEmail,
		"type":                 "Employee Mapping",
		"message":              "Employee Mapping not found",
	}}

	attribute, err := v.mappingStore.GetExpenseAttribute(ctx, accountingExport.WorkspaceID, models.AttributeTypeEmployee, employeeEmail)
	if err != nil {
		return nil, err
	}
	if attribute != nil {
		if _, err := v.errorLedger.UpsertByAttribute(
			ctx, accountingExport.WorkspaceID, attribute.ID,
			models.ErrorTypeEmployeeMapping, attribute.Value, "Employee mapping is missing",
		); err != nil {
			return nil, err
		}
	}

	return items, nil
}
