package service

import (
	"context"
	"errors"
	"time"

	"github.com/fyle-integrations/business-central-worker/internal/models"
	"github.com/fyle-integrations/business-central-worker/internal/repository"
)

// ImportExportRunner chains a full workspace run: source attribute import,
// expense fetch for both fund sources, export processing for both fund
// sources, then the summary run stamp.
type ImportExportRunner struct {
	settingsStore     SettingsStore
	exportStore       ExportStore
	attributeImporter *AttributeImporter
	expenseImporter   *ExpenseImporter
	exporter          *Exporter
}

func NewImportExportRunner(
	settingsStore SettingsStore,
	exportStore ExportStore,
	attributeImporter *AttributeImporter,
	expenseImporter *ExpenseImporter,
	exporter *Exporter,
) *ImportExportRunner {
	return &ImportExportRunner{
		settingsStore:     settingsStore,
		exportStore:       exportStore,
		attributeImporter: attributeImporter,
		expenseImporter:   expenseImporter,
		exporter:          exporter,
	}
}

// Run executes one import-export cycle for a workspace. Stage failures are
// logged and do not stop the later stages: a broken attribute import must not
// block exporting expenses that are already fetched and mapped. The first
// stage error is returned so callers can surface it.
func (r *ImportExportRunner) Run(ctx context.Context, workspaceID string, isAutoExport bool) error {
	log := logger.WithField("workspace_id", workspaceID)

	var firstErr error
	record := func(stage string, err error) {
		if err == nil {
			return
		}
		log.WithField("stage", stage).WithError(err).Error("import-export stage failed")
		if firstErr == nil {
			firstErr = err
		}
	}

	record("attribute_import", r.attributeImporter.ImportAttributes(ctx, workspaceID))

	for _, fundSource := range []string{models.FundSourcePersonal, models.FundSourceCCC} {
		record("expense_fetch", r.expenseImporter.ImportExpenses(ctx, workspaceID, fundSource))
	}

	for _, fundSource := range []string{models.FundSourcePersonal, models.FundSourceCCC} {
		record("export", r.exporter.QueueExports(ctx, workspaceID, fundSource, isAutoExport))
	}

	if err := r.stampRun(ctx, workspaceID, isAutoExport); err != nil {
		log.WithError(err).Error("failed to stamp export summary run")
	}

	return firstErr
}

// stampRun records when and how the workspace last ran. NextExportAt is only
// projected for scheduled workspaces with an interval configured.
func (r *ImportExportRunner) stampRun(ctx context.Context, workspaceID string, isAutoExport bool) error {
	summary, err := r.exportStore.GetSummary(ctx, workspaceID)
	if err != nil {
		return err
	}
	if summary == nil {
		summary = &models.AccountingExportSummary{WorkspaceID: workspaceID}
	}

	now := time.Now().UTC()
	mode := models.ExportModeManual
	if isAutoExport {
		mode = models.ExportModeAuto
	}
	summary.LastExportedAt = &now
	summary.ExportMode = &mode

	advancedSetting, err := r.settingsStore.GetAdvancedSetting(ctx, workspaceID)
	if err != nil && !errors.Is(err, repository.ErrAdvancedSettingNotFound) {
		return err
	}
	if advancedSetting != nil && advancedSetting.ScheduleIsEnabled && advancedSetting.IntervalHours != nil {
		next := now.Add(time.Duration(*advancedSetting.IntervalHours) * time.Hour)
		summary.NextExportAt = &next
	}

	return r.exportStore.UpsertSummary(ctx, summary)
}
