package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyle-integrations/business-central-worker/internal/dynamics"
	"github.com/fyle-integrations/business-central-worker/internal/models"
	"github.com/fyle-integrations/business-central-worker/internal/repository"
	"github.com/sirupsen/logrus"
)

// failingExportRepetitionLimit is the repetition count past which an auto
// export is attempted at most once per day
const failingExportRepetitionLimit = 100

// handleExportError is the single classification point for everything raised
// out of the orchestrator. Ordered match, first match wins; every branch
// leaves the export in the state the dashboard reads.
func (e *Exporter) handleExportError(ctx context.Context, accountingExport *models.AccountingExport, exportErr error) {
	log := logger.WithFields(map[string]interface{}{
		"workspace_id":         accountingExport.WorkspaceID,
		"accounting_export_id": accountingExport.ID,
	})

	var wrongParams *dynamics.WrongParamsError
	var bulkPost *dynamics.BulkPostError
	var invalidToken *dynamics.InvalidTokenError
	var bulkError *BulkError

	switch {
	case errors.Is(exportErr, repository.ErrFyleCredentialsNotFound):
		log.Info("fyle credentials not found")
		accountingExport.Status = models.ExportStatusFailed
		accountingExport.Detail = models.JSONB{"message": "Fyle credentials do not exist in workspace"}
		e.persistExportState(ctx, accountingExport, log)

	case errors.Is(exportErr, repository.ErrBusinessCentralCredentialsNotFound):
		log.Info("business central account not connected / token expired")
		accountingExport.Status = models.ExportStatusFailed
		accountingExport.Detail = models.JSONB{
			"accounting_export_id": accountingExport.ID,
			"message":              "Business Central Account not connected / token expired",
		}
		e.persistExportState(ctx, accountingExport, log)

	case errors.As(exportErr, &wrongParams):
		e.handleBusinessCentralError(ctx, accountingExport, wrongParams.Response, log)

	case errors.As(exportErr, &bulkPost):
		e.handleBusinessCentralError(ctx, accountingExport, bulkPost.Response, log)

	case errors.As(exportErr, &invalidToken):
		log.WithError(exportErr).Info("business central token invalid, expiring credentials")
		if err := e.workspaceStore.ExpireBusinessCentralCredentials(ctx, accountingExport.WorkspaceID); err != nil {
			log.WithError(err).Error("failed to expire business central credentials")
		}

	case errors.As(exportErr, &bulkError):
		log.WithError(exportErr).Info("validation failed")
		accountingExport.Status = models.ExportStatusFailed
		accountingExport.Detail = models.JSONB{"message": bulkError.Message, "errors": bulkError.Items}
		e.persistExportState(ctx, accountingExport, log)

	default:
		log.WithError(exportErr).Error("something unexpected happened during export")
		accountingExport.Status = models.ExportStatusFatal
		accountingExport.Detail = models.JSONB{"error": exportErr.Error()}
		e.persistExportState(ctx, accountingExport, log)
	}
}

// handleBusinessCentralError records a malformed-request rejection: one
// ledger row per export scope with the raw payload, detail cleared.
func (e *Exporter) handleBusinessCentralError(ctx context.Context, accountingExport *models.AccountingExport, response interface{}, log *logrus.Entry) {
	log.Info("business central rejected the export")

	errorTitle := fmt.Sprintf("Failed to create %s", accountingExport.Type)
	rawError := fmt.Sprintf("%v", response)

	if _, err := e.errorLedger.UpsertByAccountingExport(
		ctx, accountingExport.WorkspaceID, accountingExport.ID,
		models.ErrorTypeBusinessCentralError, errorTitle, rawError,
	); err != nil {
		log.WithError(err).Error("failed to upsert business central error")
	}

	accountingExport.Status = models.ExportStatusFailed
	accountingExport.Detail = nil
	accountingExport.BusinessCentralErrors = toJSONB(response)
	e.persistExportState(ctx, accountingExport, log)
}

func (e *Exporter) persistExportState(ctx context.Context, accountingExport *models.AccountingExport, log *logrus.Entry) {
	if err := e.exportStore.UpdateStatus(ctx, accountingExport); err != nil {
		log.WithError(err).Error("failed to persist accounting export state")
	}
}

// ValidateFailingExport reports whether a chronically failing auto export
// should be skipped this cycle: repetition count past the limit and the error
// last updated within 24 hours.
func ValidateFailingExport(isAutoExport bool, intervalHours *int, unresolvedError *models.Error) bool {
	return isAutoExport &&
		intervalHours != nil && *intervalHours > 0 &&
		unresolvedError != nil &&
		unresolvedError.RepetitionCount > failingExportRepetitionLimit &&
		time.Since(unresolvedError.UpdatedAt) <= 24*time.Hour
}
