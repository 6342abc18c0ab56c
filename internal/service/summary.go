package service

import (
	"context"

	"github.com/fyle-integrations/business-central-worker/internal/models"
)

// RecomputeSummary rebuilds the per-workspace export counters from the
// current accounting export rows. Fetch-stage rows are excluded from both
// counts.
func (e *Exporter) RecomputeSummary(ctx context.Context, workspaceID string) error {
	failed, err := e.exportStore.CountByStatuses(ctx, workspaceID, []string{
		models.ExportStatusFailed,
		models.ExportStatusFatal,
	})
	if err != nil {
		return err
	}

	successful, err := e.exportStore.CountByStatuses(ctx, workspaceID, []string{
		models.ExportStatusComplete,
	})
	if err != nil {
		return err
	}

	summary, err := e.exportStore.GetSummary(ctx, workspaceID)
	if err != nil {
		return err
	}
	if summary == nil {
		summary = &models.AccountingExportSummary{WorkspaceID: workspaceID}
	}
	summary.TotalAccountingExportCount = int(failed + successful)
	summary.SuccessfulAccountingExportCount = int(successful)
	summary.FailedAccountingExportCount = int(failed)

	return e.exportStore.UpsertSummary(ctx, summary)
}
