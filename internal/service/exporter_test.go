package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/fyle-integrations/business-central-worker/internal/dynamics"
	"github.com/fyle-integrations/business-central-worker/internal/models"
)

func TestCreateBusinessCentralObject_GuardSkipsInProgress(t *testing.T) {
	settingsStore := &mockSettingsStore{
		getExportSettingFunc: func(ctx context.Context, workspaceID string) (*models.ExportSetting, error) {
			t.Error("expected no settings lookup for an in-progress export")
			return nil, nil
		},
	}
	exporter := newTestExporter(&mockWorkspaceStore{}, settingsStore, &mockExportStore{}, &mockErrorLedger{})

	for _, status := range []string{models.ExportStatusInProgress, models.ExportStatusComplete} {
		export := &models.AccountingExport{ID: "exp-1", WorkspaceID: "ws-1", Status: status}
		if err := exporter.CreateBusinessCentralObject(context.Background(), export); err != nil {
			t.Fatalf("expected guard no-op for %s, got %v", status, err)
		}
	}
}

func journalExportFixtures() (*models.AccountingExport, *mockMappingStore, *mockSettingsStore, *mockWorkspaceStore) {
	export := &models.AccountingExport{
		ID:          "exp-1",
		WorkspaceID: "ws-1",
		Type:        models.ExportTypeJournalEntry,
		FundSource:  models.FundSourcePersonal,
		Status:      models.ExportStatusEnqueued,
		Description: models.JSONB{"employee_email": "jane@acme.com", "spent_at": "2024-03-05"},
		Expenses: []models.Expense{
			{
				ID:            "row-1",
				ExpenseID:     "txn1",
				ExpenseNumber: "E/2024/03/T/1",
				EmployeeEmail: "jane@acme.com",
				Category:      strPtr("Travel"),
				Amount:        decimal.NewFromFloat(125.50),
			},
		},
	}

	mappingStore := &mockMappingStore{
		getCategoryMappingFunc: func(ctx context.Context, workspaceID string, category string) (*models.CategoryMapping, error) {
			return &models.CategoryMapping{
				DestinationAccount: &models.DestinationAttribute{DestinationID: "6100"},
			}, nil
		},
		getEmployeeMappingFunc: func(ctx context.Context, workspaceID string, employeeEmail string) (*models.EmployeeMapping, error) {
			return &models.EmployeeMapping{
				DestinationEmployee: &models.DestinationAttribute{DestinationID: "E0007"},
				DestinationVendor:   &models.DestinationAttribute{DestinationID: "V0042"},
			}, nil
		},
	}

	settingsStore := &mockSettingsStore{
		getExportSettingFunc: func(ctx context.Context, workspaceID string) (*models.ExportSetting, error) {
			return &models.ExportSetting{
				WorkspaceID:                    workspaceID,
				ReimbursableExpensesExportType: strPtr(models.ReimbursableExportJournalEntry),
				EmployeeFieldMapping:           models.EmployeeFieldMappingEmployee,
				NameInJournalEntry:             models.NameInJournalEntryEmployee,
				DefaultBankAccountID:           strPtr("BANK-1"),
			}, nil
		},
	}

	companyID := "company-guid"
	workspaceStore := &mockWorkspaceStore{
		getByIDFunc: func(ctx context.Context, workspaceID string) (*models.Workspace, error) {
			return &models.Workspace{ID: workspaceID, OrgID: "orgABC", BusinessCentralCompanyID: &companyID}, nil
		},
	}

	return export, mappingStore, settingsStore, workspaceStore
}

func TestCreateBusinessCentralObject_JournalEntryHappyPath(t *testing.T) {
	export, mappingStore, settingsStore, workspaceStore := journalExportFixtures()

	var postedPayloads []map[string]interface{}
	connection := &mockConnection{
		refreshToken: "bc-refresh",
		getAllFunc: func(ctx context.Context, resource string) ([]map[string]interface{}, error) {
			if resource != "journals" {
				t.Errorf("unexpected GetAll resource %s", resource)
			}
			return []map[string]interface{}{
				{"id": "journal-other", "code": "CASH"},
				{"id": "journal-default", "code": "DEFAULT"},
			}, nil
		},
		postJournalLineItemsFunc: func(ctx context.Context, journalID string, payloads []map[string]interface{}) (*dynamics.Envelope, error) {
			if journalID != "journal-default" {
				t.Errorf("expected DEFAULT journal, got %s", journalID)
			}
			postedPayloads = payloads
			return &dynamics.Envelope{
				Responses: []dynamics.BulkResponse{
					{Status: 201, Body: map[string]interface{}{"id": "line-guid-1"}},
				},
			}, nil
		},
	}

	statuses := []string{}
	resolvedExports := []string{}
	exportStore := &mockExportStore{
		updateStatusFunc: func(ctx context.Context, export *models.AccountingExport) error {
			statuses = append(statuses, export.Status)
			return nil
		},
	}
	errorLedger := &mockErrorLedger{
		resolveForExportFunc: func(ctx context.Context, workspaceID string, exportID string) error {
			resolvedExports = append(resolvedExports, exportID)
			return nil
		},
	}
	documentStore := &mockDocumentStore{}

	exporter := NewExporter(
		workspaceStore,
		settingsStore,
		exportStore,
		errorLedger,
		NewValidator(mappingStore, errorLedger),
		NewResolver(mappingStore),
		&mockFylePlatform{},
		&mockConnectorFactory{
			connectFunc: func(ctx context.Context, refreshToken string) (DynamicsConnection, error) {
				return connection, nil
			},
		},
		&mockDimensionSyncer{},
		&mockTransactor{stores: &TxStores{
			Exports:   exportStore,
			Documents: documentStore,
			Errors:    errorLedger,
		}},
	)

	if err := exporter.CreateBusinessCentralObject(context.Background(), export); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(statuses) != 2 || statuses[0] != models.ExportStatusInProgress || statuses[1] != models.ExportStatusComplete {
		t.Errorf("expected IN_PROGRESS then COMPLETE, got %v", statuses)
	}
	if export.ExportedAt == nil {
		t.Error("expected exported_at to be stamped on completion")
	}
	if export.BusinessCentralErrors != nil {
		t.Error("expected stale business central errors to be cleared")
	}
	if len(resolvedExports) != 1 || resolvedExports[0] != "exp-1" {
		t.Errorf("expected error resolution for exp-1, got %v", resolvedExports)
	}
	if connection.companyID != "company-guid" {
		t.Errorf("expected company scope to be applied, got %s", connection.companyID)
	}

	if len(postedPayloads) != 1 {
		t.Fatalf("expected 1 journal line payload, got %d", len(postedPayloads))
	}
	payload := postedPayloads[0]
	if payload["externalDocumentNumber"] != "row-1" {
		t.Errorf("expected expense correlation key, got %v", payload["externalDocumentNumber"])
	}
	if payload["amount"] != -125.50 {
		t.Errorf("expected negated line amount, got %v", payload["amount"])
	}
	if payload["postingDate"] != "2024-03-05" {
		t.Errorf("expected spent_at posting date, got %v", payload["postingDate"])
	}
}

func TestCreateBusinessCentralObject_BulkLineFailureRaisesBulkPostError(t *testing.T) {
	export, mappingStore, settingsStore, workspaceStore := journalExportFixtures()

	connection := &mockConnection{
		getAllFunc: func(ctx context.Context, resource string) ([]map[string]interface{}, error) {
			return []map[string]interface{}{{"id": "journal-default", "code": "DEFAULT"}}, nil
		},
		postJournalLineItemsFunc: func(ctx context.Context, journalID string, payloads []map[string]interface{}) (*dynamics.Envelope, error) {
			return &dynamics.Envelope{
				Responses: []dynamics.BulkResponse{
					{Status: 400, Error: map[string]interface{}{"code": "BadRequest"}},
				},
			}, nil
		},
	}

	exportStore := &mockExportStore{}
	errorLedger := &mockErrorLedger{}
	exporter := NewExporter(
		workspaceStore,
		settingsStore,
		exportStore,
		errorLedger,
		NewValidator(mappingStore, errorLedger),
		NewResolver(mappingStore),
		&mockFylePlatform{},
		&mockConnectorFactory{
			connectFunc: func(ctx context.Context, refreshToken string) (DynamicsConnection, error) {
				return connection, nil
			},
		},
		&mockDimensionSyncer{},
		&mockTransactor{stores: &TxStores{
			Exports:   exportStore,
			Documents: &mockDocumentStore{},
			Errors:    errorLedger,
		}},
	)

	err := exporter.CreateBusinessCentralObject(context.Background(), export)
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	bulkErr, ok := err.(*dynamics.BulkPostError)
	if !ok {
		t.Fatalf("expected BulkPostError, got %T", err)
	}
	if len(bulkErr.Positions) != 1 || bulkErr.Positions[0] != 0 {
		t.Errorf("expected failing position 0, got %v", bulkErr.Positions)
	}
}

func TestCreateBusinessCentralObject_DimensionFailureKeepsExportComplete(t *testing.T) {
	export, mappingStore, settingsStore, workspaceStore := journalExportFixtures()
	export.Expenses[0].CostCenter = strPtr("Operations")
	export.Expenses[0].Project = strPtr("Apollo")

	mappingStore.listMappingSettingsFunc = func(ctx context.Context, workspaceID string) ([]models.MappingSetting, error) {
		return []models.MappingSetting{
			{SourceField: models.AttributeTypeCostCenter, DestinationField: "COST_CENTER"},
			{SourceField: models.AttributeTypeProject, DestinationField: "DEPARTMENT"},
		}, nil
	}
	mappingStore.getMappingFunc = func(ctx context.Context, workspaceID string, sourceType string, destinationType string, sourceValue string) (*models.Mapping, error) {
		if sourceType == models.AttributeTypeCostCenter {
			return &models.Mapping{Destination: &models.DestinationAttribute{
				DestinationID: "ccval-guid",
				Value:         "CC100",
				DisplayName:   "Cost Center",
				Detail:        models.JSONB{"dimension_id": "ccdim-guid"},
			}}, nil
		}
		return &models.Mapping{Destination: &models.DestinationAttribute{
			DestinationID: "deptval-guid",
			Value:         "DEPT200",
			DisplayName:   "Department",
			Detail:        models.JSONB{"dimension_id": "deptdim-guid"},
		}}, nil
	}

	dimensionParents := []string{}
	connection := &mockConnection{
		getAllFunc: func(ctx context.Context, resource string) ([]map[string]interface{}, error) {
			return []map[string]interface{}{{"id": "journal-default", "code": "DEFAULT"}}, nil
		},
		postJournalLineItemsFunc: func(ctx context.Context, journalID string, payloads []map[string]interface{}) (*dynamics.Envelope, error) {
			return &dynamics.Envelope{
				Responses: []dynamics.BulkResponse{
					{Status: 201, Body: map[string]interface{}{"id": "line-guid-1"}},
				},
			}, nil
		},
		postDimensionSetLineFunc: func(ctx context.Context, parentID string, payload map[string]interface{}) (map[string]interface{}, error) {
			dimensionParents = append(dimensionParents, parentID)
			if payload["valueCode"] == "CC100" {
				return nil, errors.New("dimension value blocked for posting")
			}
			return map[string]interface{}{"id": "dimline-guid"}, nil
		},
	}

	statuses := []string{}
	exportStore := &mockExportStore{
		updateStatusFunc: func(ctx context.Context, export *models.AccountingExport) error {
			statuses = append(statuses, export.Status)
			return nil
		},
	}

	var loggedLineItemID string
	var successLog, errorLog models.JSONBList
	documentStore := &mockDocumentStore{
		upsertJournalEntryLineItemFunc: func(ctx context.Context, lineItem *models.JournalEntryLineItem) error {
			lineItem.ID = "jeli-1"
			return nil
		},
		updateDimensionLogsFunc: func(ctx context.Context, lineItemID string, success models.JSONBList, failure models.JSONBList) error {
			loggedLineItemID = lineItemID
			successLog = success
			errorLog = failure
			return nil
		},
	}

	errorLedger := &mockErrorLedger{}
	exporter := NewExporter(
		workspaceStore,
		settingsStore,
		exportStore,
		errorLedger,
		NewValidator(mappingStore, errorLedger),
		NewResolver(mappingStore),
		&mockFylePlatform{},
		&mockConnectorFactory{
			connectFunc: func(ctx context.Context, refreshToken string) (DynamicsConnection, error) {
				return connection, nil
			},
		},
		&mockDimensionSyncer{},
		&mockTransactor{stores: &TxStores{
			Exports:   exportStore,
			Documents: documentStore,
			Errors:    errorLedger,
		}},
	)

	if err := exporter.CreateBusinessCentralObject(context.Background(), export); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(statuses) != 2 || statuses[1] != models.ExportStatusComplete {
		t.Errorf("expected export to still complete, got statuses %v", statuses)
	}
	if len(dimensionParents) != 2 || dimensionParents[0] != "line-guid-1" || dimensionParents[1] != "line-guid-1" {
		t.Errorf("expected both dimensions posted against the created line, got %v", dimensionParents)
	}
	if loggedLineItemID != "jeli-1" {
		t.Errorf("expected dimension logs stored on the line item, got %q", loggedLineItemID)
	}
	if len(successLog) != 1 {
		t.Fatalf("expected 1 dimension success entry, got %d", len(successLog))
	}
	if len(errorLog) != 1 {
		t.Fatalf("expected 1 dimension error entry, got %d", len(errorLog))
	}
	if errorLog[0].GetString("error") != "dimension value blocked for posting" {
		t.Errorf("unexpected dimension error detail: %v", errorLog[0])
	}
	failedDimension, ok := errorLog[0]["dimension"].(models.JSONB)
	if !ok || failedDimension.GetString("valueCode") != "CC100" {
		t.Errorf("expected the blocked cost center in the error log, got %v", errorLog[0]["dimension"])
	}
}

func TestProcessExport_RecomputesSummaryAfterFailure(t *testing.T) {
	var upserted *models.AccountingExportSummary
	exportStore := &mockExportStore{
		getByIDFunc: func(ctx context.Context, exportID string) (*models.AccountingExport, error) {
			return &models.AccountingExport{
				ID:          exportID,
				WorkspaceID: "ws-1",
				Type:        "UNKNOWN_TYPE",
				Status:      models.ExportStatusEnqueued,
				Description: models.JSONB{},
			}, nil
		},
		countByStatusesFunc: func(ctx context.Context, workspaceID string, statuses []string) (int64, error) {
			if statuses[0] == models.ExportStatusFailed {
				return 3, nil
			}
			return 7, nil
		},
		upsertSummaryFunc: func(ctx context.Context, summary *models.AccountingExportSummary) error {
			upserted = summary
			return nil
		},
	}
	exporter := newTestExporter(&mockWorkspaceStore{}, &mockSettingsStore{}, exportStore, &mockErrorLedger{})

	exporter.ProcessExport(context.Background(), "exp-1", false)

	if upserted == nil {
		t.Fatal("expected summary upsert after every attempt")
	}
	if upserted.TotalAccountingExportCount != 10 || upserted.FailedAccountingExportCount != 3 || upserted.SuccessfulAccountingExportCount != 7 {
		t.Errorf("unexpected summary counts: %+v", upserted)
	}
}
