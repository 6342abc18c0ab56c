package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/fyle-integrations/business-central-worker/internal/models"
	"github.com/fyle-integrations/business-central-worker/internal/repository"
)

// DimensionSyncer refreshes destination attributes before an export chain
type DimensionSyncer interface {
	SyncDimensions(ctx context.Context, workspaceID string) error
}

// Exporter drives accounting exports through the status state machine:
// queueing, validation, document build, post and the exception policy.
type Exporter struct {
	workspaceStore   WorkspaceStore
	settingsStore    SettingsStore
	exportStore      ExportStore
	errorLedger      ErrorLedger
	validator        *Validator
	resolver         *Resolver
	fylePlatform     FylePlatform
	connectorFactory ConnectorFactory
	dimensionSyncer  DimensionSyncer
	transactor       Transactor
}

func NewExporter(
	workspaceStore WorkspaceStore,
	settingsStore SettingsStore,
	exportStore ExportStore,
	errorLedger ErrorLedger,
	validator *Validator,
	resolver *Resolver,
	fylePlatform FylePlatform,
	connectorFactory ConnectorFactory,
	dimensionSyncer DimensionSyncer,
	transactor Transactor,
) *Exporter {
	return &Exporter{
		workspaceStore:   workspaceStore,
		settingsStore:    settingsStore,
		exportStore:      exportStore,
		errorLedger:      errorLedger,
		validator:        validator,
		resolver:         resolver,
		fylePlatform:     fylePlatform,
		connectorFactory: connectorFactory,
		dimensionSyncer:  dimensionSyncer,
		transactor:       transactor,
	}
}

// QueueExports enqueues every exportable accounting export for one fund
// source, syncs destination dimensions once, then processes each export in
// order. The export type to build comes from the workspace's export settings.
func (e *Exporter) QueueExports(ctx context.Context, workspaceID string, fundSource string, isAutoExport bool) error {
	exportSettings, err := e.settingsStore.GetExportSetting(ctx, workspaceID)
	if errors.Is(err, repository.ErrExportSettingNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get export settings: %w", err)
	}

	exportType := e.exportTypeFor(exportSettings, fundSource)
	if exportType == "" {
		return nil
	}

	exportIDs, err := e.exportStore.ListExportableIDs(ctx, workspaceID, fundSource)
	if err != nil {
		return fmt.Errorf("failed to list exportable accounting exports: %w", err)
	}
	if len(exportIDs) == 0 {
		return nil
	}

	for _, exportID := range exportIDs {
		if err := e.exportStore.MarkEnqueued(ctx, exportID, exportType); err != nil {
			return fmt.Errorf("failed to enqueue accounting export: %w", err)
		}
	}

	if err := e.dimensionSyncer.SyncDimensions(ctx, workspaceID); err != nil {
		logger.WithField("workspace_id", workspaceID).WithError(err).Warn("dimension sync before export failed")
	}

	for _, exportID := range exportIDs {
		e.ProcessExport(ctx, exportID, isAutoExport)
	}

	return nil
}

func (e *Exporter) exportTypeFor(exportSettings *models.ExportSetting, fundSource string) string {
	if fundSource == models.FundSourcePersonal {
		if exportSettings.ReimbursableExpensesExportType == nil {
			return ""
		}
		return *exportSettings.ReimbursableExpensesExportType
	}
	if exportSettings.CreditCardExpenseExportType == nil {
		return ""
	}
	return *exportSettings.CreditCardExpenseExportType
}

// ProcessExport runs one accounting export end to end: throttle check,
// orchestration, error classification and the unconditional summary refresh.
func (e *Exporter) ProcessExport(ctx context.Context, exportID string, isAutoExport bool) {
	accountingExport, err := e.exportStore.GetByID(ctx, exportID)
	if err != nil {
		logger.WithField("accounting_export_id", exportID).WithError(err).Error("failed to load accounting export")
		return
	}

	skip, err := e.shouldThrottle(ctx, accountingExport, isAutoExport)
	if err != nil {
		logger.WithField("accounting_export_id", exportID).WithError(err).Error("throttle check failed")
		return
	}
	if skip {
		logger.WithFields(map[string]interface{}{
			"workspace_id":         accountingExport.WorkspaceID,
			"accounting_export_id": exportID,
		}).Info("skipping chronically failing export this cycle")
		return
	}

	exportErr := e.createWithRecover(ctx, accountingExport)
	if exportErr != nil {
		e.handleExportError(ctx, accountingExport, exportErr)
	}

	if err := e.RecomputeSummary(ctx, accountingExport.WorkspaceID); err != nil {
		logger.WithField("workspace_id", accountingExport.WorkspaceID).WithError(err).Error("failed to recompute export summary")
	}
}

// shouldThrottle applies the chronic-failure backoff: under auto export with
// an interval configured, an export whose unresolved error crossed 100
// repetitions is attempted at most once per 24 hours. Manual triggers bypass
// the throttle entirely.
func (e *Exporter) shouldThrottle(ctx context.Context, accountingExport *models.AccountingExport, isAutoExport bool) (bool, error) {
	if !isAutoExport {
		return false, nil
	}
	advancedSetting, err := e.settingsStore.GetAdvancedSetting(ctx, accountingExport.WorkspaceID)
	if errors.Is(err, repository.ErrAdvancedSettingNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	unresolvedError, err := e.errorLedger.GetUnresolvedForExport(ctx, accountingExport.WorkspaceID, accountingExport.ID)
	if err != nil {
		return false, err
	}
	return ValidateFailingExport(isAutoExport, advancedSetting.IntervalHours, unresolvedError), nil
}

func (e *Exporter) createWithRecover(ctx context.Context, accountingExport *models.AccountingExport) (exportErr error) {
	defer func() {
		if r := recover(); r != nil {
			exportErr = fmt.Errorf("panic during export: %v\n%s", r, debug.Stack())
		}
	}()
	return e.CreateBusinessCentralObject(ctx, accountingExport)
}

// CreateBusinessCentralObject is the export orchestrator: guard, IN_PROGRESS
// flip, validation gate, then one atomic build+post+complete transaction.
func (e *Exporter) CreateBusinessCentralObject(ctx context.Context, accountingExport *models.AccountingExport) error {
	// Idempotent guard against duplicate concurrent triggers
	if accountingExport.Status == models.ExportStatusInProgress || accountingExport.Status == models.ExportStatusComplete {
		return nil
	}

	exportSettings, err := e.settingsStore.GetExportSetting(ctx, accountingExport.WorkspaceID)
	if err != nil {
		return fmt.Errorf("failed to get export settings: %w", err)
	}
	if err := exportSettings.Validate(); err != nil {
		return fmt.Errorf("invalid export settings: %w", err)
	}
	advancedSetting, err := e.settingsStore.GetAdvancedSetting(ctx, accountingExport.WorkspaceID)
	if err != nil {
		return fmt.Errorf("failed to get advanced settings: %w", err)
	}

	// Persisted before any work so a concurrent trigger observes the guard
	accountingExport.Status = models.ExportStatusInProgress
	if err := e.exportStore.UpdateStatus(ctx, accountingExport); err != nil {
		return fmt.Errorf("failed to mark accounting export in progress: %w", err)
	}

	if err := e.validator.ValidateAccountingExport(ctx, accountingExport, exportSettings); err != nil {
		return err
	}

	workspace, err := e.workspaceStore.GetByID(ctx, accountingExport.WorkspaceID)
	if err != nil {
		return fmt.Errorf("failed to get workspace: %w", err)
	}
	fyleCredentials, err := e.workspaceStore.GetFyleCredentials(ctx, accountingExport.WorkspaceID)
	if err != nil {
		return err
	}

	connection, err := connectBusinessCentral(ctx, e.workspaceStore, e.connectorFactory, workspace)
	if err != nil {
		return err
	}

	return e.transactor.Transaction(ctx, func(stores *TxStores) error {
		var detail models.JSONB
		var postErr error

		switch accountingExport.Type {
		case models.ExportTypePurchaseInvoice, models.ExportTypeInvoices:
			detail, postErr = e.exportPurchaseInvoice(ctx, stores, accountingExport, workspace, fyleCredentials, exportSettings, advancedSetting, connection)
		case models.ExportTypeJournalEntry:
			detail, postErr = e.exportJournalEntry(ctx, stores, accountingExport, workspace, fyleCredentials, exportSettings, advancedSetting, connection)
		default:
			postErr = fmt.Errorf("unsupported accounting export type %s", accountingExport.Type)
		}
		if postErr != nil {
			return postErr
		}

		now := time.Now()
		accountingExport.Status = models.ExportStatusComplete
		accountingExport.Detail = detail
		accountingExport.BusinessCentralErrors = nil
		accountingExport.ExportedAt = &now
		if err := stores.Exports.UpdateStatus(ctx, accountingExport); err != nil {
			return fmt.Errorf("failed to complete accounting export: %w", err)
		}

		return stores.Errors.ResolveForExport(ctx, accountingExport.WorkspaceID, accountingExport.ID)
	})
}

// connectBusinessCentral builds a company-scoped Business Central connection
// from the workspace's stored credentials, persisting a rotated refresh token
func connectBusinessCentral(ctx context.Context, workspaceStore WorkspaceStore, factory ConnectorFactory, workspace *models.Workspace) (DynamicsConnection, error) {
	credentials, err := workspaceStore.GetActiveBusinessCentralCredentials(ctx, workspace.ID)
	if err != nil {
		return nil, err
	}

	connection, err := factory.Connect(ctx, *credentials.RefreshToken)
	if err != nil {
		return nil, err
	}

	if rotated := connection.RefreshToken(); rotated != "" && rotated != *credentials.RefreshToken {
		if err := workspaceStore.UpdateBusinessCentralRefreshToken(ctx, workspace.ID, rotated); err != nil {
			return nil, fmt.Errorf("failed to persist rotated refresh token: %w", err)
		}
	}

	if workspace.BusinessCentralCompanyID != nil {
		connection.SetCompanyID(*workspace.BusinessCentralCompanyID)
	}

	return connection, nil
}

// toJSONB converts any marshalable value into the detail column shape
func toJSONB(value interface{}) models.JSONB {
	raw, err := json.Marshal(value)
	if err != nil {
		return models.JSONB{"value": fmt.Sprintf("%v", value)}
	}
	var out models.JSONB
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.JSONB{"value": string(raw)}
	}
	return out
}
