package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fyle-integrations/business-central-worker/internal/fyle"
	"github.com/fyle-integrations/business-central-worker/internal/models"
	"github.com/fyle-integrations/business-central-worker/internal/repository"
)

// ExpenseImporter runs the fetch stage: pull expenses from the platform past
// the workspace watermark, snapshot them, and group them into export units.
type ExpenseImporter struct {
	workspaceStore WorkspaceStore
	settingsStore  SettingsStore
	exportStore    ExportStore
	fylePlatform   FylePlatform
	transactor     Transactor
}

func NewExpenseImporter(
	workspaceStore WorkspaceStore,
	settingsStore SettingsStore,
	exportStore ExportStore,
	fylePlatform FylePlatform,
	transactor Transactor,
) *ExpenseImporter {
	return &ExpenseImporter{
		workspaceStore: workspaceStore,
		settingsStore:  settingsStore,
		exportStore:    exportStore,
		fylePlatform:   fylePlatform,
		transactor:     transactor,
	}
}

// ImportExpenses fetches one fund source for one workspace. A fund source
// with no configured export type is skipped. The fetch-type export row
// tracks the run and ends COMPLETE or FAILED.
func (i *ExpenseImporter) ImportExpenses(ctx context.Context, workspaceID string, fundSource string) error {
	log := logger.WithFields(logrus.Fields{
		"workspace_id": workspaceID,
		"fund_source":  fundSource,
	})

	exportSettings, err := i.settingsStore.GetExportSetting(ctx, workspaceID)
	if errors.Is(err, repository.ErrExportSettingNotFound) {
		log.Info("export settings missing, skipping expense fetch")
		return nil
	}
	if err != nil {
		return err
	}

	state := expenseStateFor(exportSettings, fundSource)
	if state == "" {
		log.Info("fund source not configured for export, skipping expense fetch")
		return nil
	}

	fetchType := models.ExportTypeFetchingReimbursable
	if fundSource == models.FundSourceCCC {
		fetchType = models.ExportTypeFetchingCreditCard
	}

	fetchExport, err := i.exportStore.UpsertFetchExport(ctx, workspaceID, fetchType)
	if err != nil {
		return err
	}

	if err := i.runFetch(ctx, workspaceID, fundSource, state, exportSettings); err != nil {
		log.WithError(err).Error("expense fetch failed")
		fetchExport.Status = models.ExportStatusFailed
		fetchExport.Detail = models.JSONB{"message": err.Error()}
		if updateErr := i.exportStore.UpdateStatus(ctx, fetchExport); updateErr != nil {
			log.WithError(updateErr).Error("failed to mark fetch export failed")
		}
		return err
	}

	fetchExport.Status = models.ExportStatusComplete
	fetchExport.Detail = nil
	return i.exportStore.UpdateStatus(ctx, fetchExport)
}

func (i *ExpenseImporter) runFetch(ctx context.Context, workspaceID, fundSource, state string, exportSettings *models.ExportSetting) error {
	workspace, err := i.workspaceStore.GetByID(ctx, workspaceID)
	if err != nil {
		return err
	}

	fyleCredentials, err := i.workspaceStore.GetFyleCredentials(ctx, workspaceID)
	if err != nil {
		return err
	}

	filter := fyle.ExpenseFilter{
		State:                state,
		FilterCreditExpenses: fundSource == models.FundSourceCCC,
	}
	if fundSource == models.FundSourceCCC {
		filter.SourceAccountType = fyle.SourceAccountCorporateCreditCard
	} else {
		filter.SourceAccountType = fyle.SourceAccountPersonalCash
	}

	watermark := workspace.ReimbursableLastSyncedAt
	if fundSource == models.FundSourceCCC {
		watermark = workspace.CreditCardLastSyncedAt
	}
	switch state {
	case models.ExpenseStatePaymentProcessing:
		filter.SettledAfter = watermark
	case models.ExpenseStateApproved:
		filter.ApprovedAfter = watermark
	case models.ExpenseStatePaid:
		filter.LastPaidAfter = watermark
	}

	platformExpenses, err := i.fylePlatform.ListExpenses(ctx, clusterDomain(fyleCredentials), fyleCredentials.RefreshToken, filter)
	if err != nil {
		return err
	}
	if len(platformExpenses) == 0 {
		return nil
	}

	syncedAt := time.Now()
	expenses := make([]models.Expense, 0, len(platformExpenses))
	for _, platformExpense := range platformExpenses {
		expenses = append(expenses, toExpenseModel(workspaceID, fundSource, platformExpense))
	}

	groupedBy := expenseGroupingFor(exportSettings, fundSource)

	// Snapshot, group, and advance the watermark atomically so a crash
	// cannot lose expenses between the fetch and the next run.
	return i.transactor.Transaction(ctx, func(stores *TxStores) error {
		if err := stores.Expenses.BulkUpsert(ctx, expenses); err != nil {
			return err
		}
		for _, group := range groupExpenses(expenses, groupedBy) {
			export := &models.AccountingExport{
				WorkspaceID: workspaceID,
				Type:        exportTypeForFundSource(exportSettings, fundSource),
				FundSource:  fundSource,
				Status:      models.ExportStatusExportReady,
				Description: describeGroup(group, groupedBy),
			}
			if err := stores.Exports.CreateWithExpenses(ctx, export, group); err != nil {
				return err
			}
		}
		return stores.Workspaces.UpdateExpenseWatermark(ctx, workspaceID, fundSource, syncedAt)
	})
}

func expenseStateFor(exportSettings *models.ExportSetting, fundSource string) string {
	if fundSource == models.FundSourceCCC {
		if exportSettings.CreditCardExpenseExportType == nil || exportSettings.CreditCardExpenseState == nil {
			return ""
		}
		return *exportSettings.CreditCardExpenseState
	}
	if exportSettings.ReimbursableExpensesExportType == nil || exportSettings.ReimbursableExpenseState == nil {
		return ""
	}
	return *exportSettings.ReimbursableExpenseState
}

func expenseGroupingFor(exportSettings *models.ExportSetting, fundSource string) string {
	grouping := exportSettings.ReimbursableExpenseGroupedBy
	if fundSource == models.FundSourceCCC {
		grouping = exportSettings.CreditCardExpenseGroupedBy
	}
	if grouping == nil {
		return models.GroupByReport
	}
	return *grouping
}

func exportTypeForFundSource(exportSettings *models.ExportSetting, fundSource string) string {
	exportType := exportSettings.ReimbursableExpensesExportType
	if fundSource == models.FundSourceCCC {
		exportType = exportSettings.CreditCardExpenseExportType
	}
	if exportType == nil {
		return ""
	}
	return *exportType
}

// groupExpenses buckets by report when configured, otherwise one export per
// expense. Report order within a bucket follows the fetch order.
func groupExpenses(expenses []models.Expense, groupedBy string) [][]models.Expense {
	if groupedBy != models.GroupByReport {
		groups := make([][]models.Expense, 0, len(expenses))
		for i := range expenses {
			groups = append(groups, []models.Expense{expenses[i]})
		}
		return groups
	}

	order := []string{}
	byReport := map[string][]models.Expense{}
	for i := range expenses {
		reportID := expenses[i].ReportID
		if _, seen := byReport[reportID]; !seen {
			order = append(order, reportID)
		}
		byReport[reportID] = append(byReport[reportID], expenses[i])
	}

	groups := make([][]models.Expense, 0, len(order))
	for _, reportID := range order {
		groups = append(groups, byReport[reportID])
	}
	return groups
}

// describeGroup builds the description bag read later by the invoice-date
// and memo resolvers.
func describeGroup(group []models.Expense, groupedBy string) models.JSONB {
	first := group[0]
	description := models.JSONB{
		"employee_email": first.EmployeeEmail,
		"claim_number":   first.ClaimNumber,
		"report_id":      first.ReportID,
	}

	if groupedBy == models.GroupByReport {
		var lastSpentAt *time.Time
		for i := range group {
			if group[i].SpentAt != nil && (lastSpentAt == nil || group[i].SpentAt.After(*lastSpentAt)) {
				lastSpentAt = group[i].SpentAt
			}
		}
		putTime(description, "last_spent_at", lastSpentAt)
		putTime(description, "approved_at", first.ApprovedAt)
		return description
	}

	description["expense_id"] = first.ExpenseID
	putTime(description, "spent_at", first.SpentAt)
	putTime(description, "approved_at", first.ApprovedAt)
	putTime(description, "verified_at", first.VerifiedAt)
	putTime(description, "posted_at", first.PostedAt)
	return description
}

func putTime(bag models.JSONB, key string, value *time.Time) {
	if value == nil {
		return
	}
	bag[key] = value.Format(time.RFC3339)
}

func toExpenseModel(workspaceID string, fundSource string, platformExpense fyle.Expense) models.Expense {
	expense := models.Expense{
		WorkspaceID:   workspaceID,
		EmployeeEmail: platformExpense.EmployeeEmail,
		ExpenseID:     platformExpense.ID,
		OrgID:         platformExpense.OrgID,
		ExpenseNumber: platformExpense.ExpenseNumber,
		ClaimNumber:   platformExpense.ClaimNumber,
		Amount:        platformExpense.Amount,
		Currency:      platformExpense.Currency,
		Reimbursable:  platformExpense.Reimbursable,
		State:         platformExpense.State,
		ReportID:      platformExpense.ReportID,
		Billable:      platformExpense.Billable,
		FundSource:    fundSource,
		FileIDs:       models.StringList(platformExpense.FileIDs),
		SpentAt:       platformExpense.SpentAt,
		ApprovedAt:    platformExpense.ApprovedAt,
		PostedAt:      platformExpense.PostedAt,
		VerifiedAt:    platformExpense.VerifiedAt,
	}

	expense.EmployeeName = optional(platformExpense.EmployeeName)
	expense.Category = optional(platformExpense.Category)
	expense.SubCategory = optional(platformExpense.SubCategory)
	expense.Project = optional(platformExpense.Project)
	expense.Vendor = optional(platformExpense.Vendor)
	expense.CostCenter = optional(platformExpense.CostCenter)
	expense.Purpose = optional(platformExpense.Purpose)
	expense.SettlementID = optional(platformExpense.SettlementID)
	expense.ForeignCurrency = optional(platformExpense.ForeignCurrency)
	if platformExpense.ForeignCurrency != "" {
		foreignAmount := platformExpense.ForeignAmount
		expense.ForeignAmount = &foreignAmount
	}

	createdAt := platformExpense.ExpenseCreatedAt
	updatedAt := platformExpense.ExpenseUpdatedAt
	expense.ExpenseCreatedAt = &createdAt
	expense.ExpenseUpdatedAt = &updatedAt

	if len(platformExpense.CustomProperties) > 0 {
		expense.CustomProperties = models.JSONB(platformExpense.CustomProperties)
	}

	return expense
}
