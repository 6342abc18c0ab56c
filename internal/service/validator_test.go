package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fyle-integrations/business-central-worker/internal/models"
)

func TestValidator_AllMappingsPresent(t *testing.T) {
	mappingStore := &mockMappingStore{
		getCategoryMappingFunc: func(ctx context.Context, workspaceID string, category string) (*models.CategoryMapping, error) {
			return &models.CategoryMapping{
				DestinationAccount: &models.DestinationAttribute{DestinationID: "6100"},
			}, nil
		},
		getEmployeeMappingFunc: func(ctx context.Context, workspaceID string, employeeEmail string) (*models.EmployeeMapping, error) {
			return &models.EmployeeMapping{
				DestinationVendor: &models.DestinationAttribute{DestinationID: "V0042"},
			}, nil
		},
	}
	validator := NewValidator(mappingStore, &mockErrorLedger{})

	export := &models.AccountingExport{
		ID:          "exp-1",
		WorkspaceID: "ws-1",
		Description: models.JSONB{"employee_email": "jane@acme.com"},
		Expenses: []models.Expense{
			{Category: strPtr("Travel")},
		},
	}
	settings := &models.ExportSetting{EmployeeFieldMapping: models.EmployeeFieldMappingVendor}

	if err := validator.ValidateAccountingExport(context.Background(), export, settings); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidator_CollectsMissingMappings(t *testing.T) {
	ledgerWrites := map[string]string{}
	mappingStore := &mockMappingStore{
		getExpenseAttributeFunc: func(ctx context.Context, workspaceID string, attributeType string, value string) (*models.ExpenseAttribute, error) {
			return &models.ExpenseAttribute{ID: "attr-" + value, Value: value}, nil
		},
	}
	errorLedger := &mockErrorLedger{
		upsertByAttributeFunc: func(ctx context.Context, workspaceID string, attributeID string, errorType string, title string, detail string) (*models.Error, error) {
			ledgerWrites[attributeID] = errorType
			return &models.Error{}, nil
		},
	}
	validator := NewValidator(mappingStore, errorLedger)

	export := &models.AccountingExport{
		ID:          "exp-1",
		WorkspaceID: "ws-1",
		Description: models.JSONB{"employee_email": "jane@acme.com"},
		Expenses: []models.Expense{
			{Category: strPtr("Travel")},
			{Category: strPtr("Meals"), SubCategory: strPtr("Team Lunch")},
		},
	}
	settings := &models.ExportSetting{EmployeeFieldMapping: models.EmployeeFieldMappingEmployee}

	err := validator.ValidateAccountingExport(context.Background(), export, settings)
	if err == nil {
		t.Fatal("expected a validation error, got nil")
	}

	var bulkErr *BulkError
	if !errors.As(err, &bulkErr) {
		t.Fatalf("expected a BulkError, got %T", err)
	}
	// two category rows plus one employee row
	if len(bulkErr.Items) != 3 {
		t.Fatalf("expected 3 missing-mapping items, got %d", len(bulkErr.Items))
	}
	if bulkErr.Items[1]["value"] != "Meals / Team Lunch" {
		t.Errorf("expected joined category value, got %v", bulkErr.Items[1]["value"])
	}

	if ledgerWrites["attr-Travel"] != models.ErrorTypeCategoryMapping {
		t.Errorf("expected category ledger row for Travel, got %v", ledgerWrites)
	}
	if ledgerWrites["attr-jane@acme.com"] != models.ErrorTypeEmployeeMapping {
		t.Errorf("expected employee ledger row, got %v", ledgerWrites)
	}
}

func TestValidator_EmployeeMappingRespectsFieldMappingChoice(t *testing.T) {
	// Vendor-only mapping does not satisfy EMPLOYEE field mapping
	mappingStore := &mockMappingStore{
		getCategoryMappingFunc: func(ctx context.Context, workspaceID string, category string) (*models.CategoryMapping, error) {
			return &models.CategoryMapping{
				DestinationAccount: &models.DestinationAttribute{DestinationID: "6100"},
			}, nil
		},
		getEmployeeMappingFunc: func(ctx context.Context, workspaceID string, employeeEmail string) (*models.EmployeeMapping, error) {
			return &models.EmployeeMapping{
				DestinationVendor: &models.DestinationAttribute{DestinationID: "V0042"},
			}, nil
		},
	}
	validator := NewValidator(mappingStore, &mockErrorLedger{})

	export := &models.AccountingExport{
		ID:          "exp-1",
		WorkspaceID: "ws-1",
		Description: models.JSONB{"employee_email": "jane@acme.com"},
		Expenses:    []models.Expense{{Category: strPtr("Travel")}},
	}
	settings := &models.ExportSetting{EmployeeFieldMapping: models.EmployeeFieldMappingEmployee}

	err := validator.ValidateAccountingExport(context.Background(), export, settings)
	if err == nil {
		t.Fatal("expected a validation error, got nil")
	}

	var bulkErr *BulkError
	if !errors.As(err, &bulkErr) {
		t.Fatalf("expected a BulkError, got %T", err)
	}
	if len(bulkErr.Items) != 1 || bulkErr.Items[0]["type"] != "Employee Mapping" {
		t.Errorf("expected a single employee-mapping item, got %v", bulkErr.Items)
	}
}
