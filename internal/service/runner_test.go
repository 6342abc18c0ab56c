package service

import (
	"context"
	"testing"

	"github.com/fyle-integrations/business-central-worker/internal/models"
	"github.com/fyle-integrations/business-central-worker/internal/repository"
)

func newTestRunner(settingsStore *mockSettingsStore, exportStore *mockExportStore, workspaceStore *mockWorkspaceStore) *ImportExportRunner {
	errorLedger := &mockErrorLedger{}
	mappingStore := &mockMappingStore{}
	fylePlatform := &mockFylePlatform{}
	transactor := &mockTransactor{stores: &TxStores{
		Exports:    exportStore,
		Expenses:   &mockExpenseStore{},
		Workspaces: workspaceStore,
		Errors:     errorLedger,
		Documents:  &mockDocumentStore{},
	}}

	attributeImporter := NewAttributeImporter(workspaceStore, settingsStore, &mockAttributeStore{}, &mockImportLogStore{}, errorLedger, fylePlatform)
	expenseImporter := NewExpenseImporter(workspaceStore, settingsStore, exportStore, fylePlatform, transactor)
	exporter := NewExporter(
		workspaceStore,
		settingsStore,
		exportStore,
		errorLedger,
		NewValidator(mappingStore, errorLedger),
		NewResolver(mappingStore),
		fylePlatform,
		&mockConnectorFactory{},
		&mockDimensionSyncer{},
		transactor,
	)
	return NewImportExportRunner(settingsStore, exportStore, attributeImporter, expenseImporter, exporter)
}

func TestRun_ManualRunStampsSummary(t *testing.T) {
	settingsStore := &mockSettingsStore{
		getExportSettingFunc: func(ctx context.Context, workspaceID string) (*models.ExportSetting, error) {
			return nil, repository.ErrExportSettingNotFound
		},
		getAdvancedSettingFunc: func(ctx context.Context, workspaceID string) (*models.AdvancedSetting, error) {
			return nil, repository.ErrAdvancedSettingNotFound
		},
	}

	var upserted *models.AccountingExportSummary
	exportStore := &mockExportStore{
		upsertSummaryFunc: func(ctx context.Context, summary *models.AccountingExportSummary) error {
			upserted = summary
			return nil
		},
	}

	runner := newTestRunner(settingsStore, exportStore, &mockWorkspaceStore{})

	if err := runner.Run(context.Background(), "ws-1", false); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if upserted == nil {
		t.Fatal("expected the summary run stamp")
	}
	if upserted.LastExportedAt == nil {
		t.Error("expected last_exported_at to be stamped")
	}
	if upserted.ExportMode == nil || *upserted.ExportMode != models.ExportModeManual {
		t.Errorf("expected MANUAL export mode, got %v", upserted.ExportMode)
	}
	if upserted.NextExportAt != nil {
		t.Error("expected no next run projection without a schedule")
	}
}

func TestRun_AutoRunProjectsNextExport(t *testing.T) {
	intervalHours := 6
	settingsStore := &mockSettingsStore{
		getExportSettingFunc: func(ctx context.Context, workspaceID string) (*models.ExportSetting, error) {
			return nil, repository.ErrExportSettingNotFound
		},
		getAdvancedSettingFunc: func(ctx context.Context, workspaceID string) (*models.AdvancedSetting, error) {
			return &models.AdvancedSetting{
				WorkspaceID:       workspaceID,
				ScheduleIsEnabled: true,
				IntervalHours:     &intervalHours,
			}, nil
		},
	}

	var upserted *models.AccountingExportSummary
	exportStore := &mockExportStore{
		upsertSummaryFunc: func(ctx context.Context, summary *models.AccountingExportSummary) error {
			upserted = summary
			return nil
		},
	}

	runner := newTestRunner(settingsStore, exportStore, &mockWorkspaceStore{})

	if err := runner.Run(context.Background(), "ws-1", true); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if upserted == nil || upserted.ExportMode == nil || *upserted.ExportMode != models.ExportModeAuto {
		t.Fatalf("expected AUTO export mode stamp, got %+v", upserted)
	}
	if upserted.NextExportAt == nil {
		t.Fatal("expected a next run projection for a scheduled workspace")
	}
	gap := upserted.NextExportAt.Sub(*upserted.LastExportedAt)
	if gap.Hours() != float64(intervalHours) {
		t.Errorf("expected a %dh projection gap, got %v", intervalHours, gap)
	}
}

func TestRun_AttributeImportFailureDoesNotBlockFetch(t *testing.T) {
	settingsStore := &mockSettingsStore{
		getExportSettingFunc: func(ctx context.Context, workspaceID string) (*models.ExportSetting, error) {
			return &models.ExportSetting{
				WorkspaceID:                    workspaceID,
				ReimbursableExpensesExportType: strPtr(models.ReimbursableExportJournalEntry),
				ReimbursableExpenseState:       strPtr(models.ExpenseStatePaid),
			}, nil
		},
		getAdvancedSettingFunc: func(ctx context.Context, workspaceID string) (*models.AdvancedSetting, error) {
			return nil, repository.ErrAdvancedSettingNotFound
		},
	}

	workspaceStore := &mockWorkspaceStore{
		getFyleCredentialsFunc: func(ctx context.Context, workspaceID string) (*models.FyleCredentials, error) {
			return nil, repository.ErrFyleCredentialsNotFound
		},
	}
	fetchAttempts := 0
	exportStore := &mockExportStore{
		upsertFetchExportFunc: func(ctx context.Context, workspaceID string, exportType string) (*models.AccountingExport, error) {
			fetchAttempts++
			return &models.AccountingExport{ID: "fetch-1", WorkspaceID: workspaceID, Type: exportType}, nil
		},
	}

	runner := newTestRunner(settingsStore, exportStore, workspaceStore)

	err := runner.Run(context.Background(), "ws-1", false)
	if err == nil {
		t.Fatal("expected the attribute import failure to surface")
	}
	if fetchAttempts != 1 {
		t.Errorf("expected the reimbursable fetch stage to run despite the import failure, got %d attempts", fetchAttempts)
	}
}
