package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fyle-integrations/business-central-worker/internal/dynamics"
	"github.com/fyle-integrations/business-central-worker/internal/models"
)

// exportJournalEntry builds the staging rows for one journal-entry export,
// bulk-posts the lines, then runs the dimension second pass and the
// best-effort attachment upload.
func (e *Exporter) exportJournalEntry(
	ctx context.Context,
	stores *TxStores,
	accountingExport *models.AccountingExport,
	workspace *models.Workspace,
	fyleCredentials *models.FyleCredentials,
	exportSettings *models.ExportSetting,
	advancedSetting *models.AdvancedSetting,
	connection DynamicsConnection,
) (models.JSONB, error) {
	if len(accountingExport.Expenses) == 0 {
		return nil, fmt.Errorf("accounting export %s has no expenses", accountingExport.ID)
	}

	entry, err := e.buildJournalEntry(ctx, stores, accountingExport, workspace, fyleCredentials, exportSettings, advancedSetting)
	if err != nil {
		return nil, err
	}

	lineItems, err := e.buildJournalEntryLineItems(ctx, stores, accountingExport, workspace, fyleCredentials, exportSettings, advancedSetting, entry)
	if err != nil {
		return nil, err
	}

	journalID, err := e.resolveJournalID(ctx, connection)
	if err != nil {
		return nil, err
	}

	payloads := make([]map[string]interface{}, 0, len(lineItems))
	for _, lineItem := range lineItems {
		payload := map[string]interface{}{
			"accountNumber":  stringValue(lineItem.AccountsPayableAccountID),
			"postingDate":    lineItem.InvoiceDate,
			"documentNumber": lineItem.DocumentNumber,
			"amount":         lineItem.Amount.InexactFloat64(),
			"comment":        lineItem.Comment,
			// Round-tripped correlation key for the dimension second pass
			"externalDocumentNumber": lineItem.ExpenseID,
		}
		if lineItem.Description != nil {
			payload["description"] = *lineItem.Description
		}
		payloads = append(payloads, payload)
	}

	envelope, err := connection.PostJournalLineItems(ctx, journalID, payloads)
	if err != nil {
		return nil, err
	}

	failed := []int{}
	for i, response := range envelope.Responses {
		if response.Error != nil {
			failed = append(failed, i)
		}
	}
	if len(failed) > 0 {
		return nil, &dynamics.BulkPostError{
			Message:   "journal line creation failed",
			Positions: failed,
			Response:  envelope,
		}
	}

	e.postJournalDimensions(ctx, stores, lineItems, envelope, connection)
	e.loadAttachments(ctx, accountingExport, fyleCredentials, connection, "Journal Entry", envelope)

	return toJSONB(envelope), nil
}

func (e *Exporter) buildJournalEntry(
	ctx context.Context,
	stores *TxStores,
	accountingExport *models.AccountingExport,
	workspace *models.Workspace,
	fyleCredentials *models.FyleCredentials,
	exportSettings *models.ExportSetting,
	advancedSetting *models.AdvancedSetting,
) (*models.JournalEntry, error) {
	expense := accountingExport.Expenses[0]

	accountsPayableAccountID := exportSettings.DefaultBankAccountID
	if expense.FundSource == models.FundSourceCCC {
		accountsPayableAccountID = exportSettings.DefaultCCCBankAccountID
	}

	accountType, accountID, err := e.resolver.GetAccountIDType(ctx, accountingExport, exportSettings, expense.VendorName())
	if err != nil {
		return nil, err
	}

	comment := GetExpenseComment(clusterDomain(fyleCredentials), workspace.OrgID, &expense, expense.EffectiveCategory(), advancedSetting)

	entry := &models.JournalEntry{
		WorkspaceID:              accountingExport.WorkspaceID,
		AccountingExportID:       accountingExport.ID,
		AccountsPayableAccountID: accountsPayableAccountID,
		AccountID:                optional(accountID),
		AccountType:              optional(accountType),
		Amount:                   expense.Amount,
		Comment:                  comment,
		InvoiceDate:              GetInvoiceDate(accountingExport),
		DocumentNumber:           expense.ExpenseNumber,
	}
	if err := stores.Documents.UpsertJournalEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (e *Exporter) buildJournalEntryLineItems(
	ctx context.Context,
	stores *TxStores,
	accountingExport *models.AccountingExport,
	workspace *models.Workspace,
	fyleCredentials *models.FyleCredentials,
	exportSettings *models.ExportSetting,
	advancedSetting *models.AdvancedSetting,
	entry *models.JournalEntry,
) ([]models.JournalEntryLineItem, error) {
	lineItems := make([]models.JournalEntryLineItem, 0, len(accountingExport.Expenses))

	for i := range accountingExport.Expenses {
		expense := accountingExport.Expenses[i]
		category := expense.EffectiveCategory()

		categoryMapping, err := e.validator.mappingStore.GetCategoryMapping(ctx, accountingExport.WorkspaceID, category)
		if err != nil {
			return nil, err
		}
		if categoryMapping == nil || categoryMapping.DestinationAccount == nil {
			return nil, fmt.Errorf("category mapping missing for %q", category)
		}

		accountType, accountID, err := e.resolver.GetAccountIDType(ctx, accountingExport, exportSettings, expense.VendorName())
		if err != nil {
			return nil, err
		}

		locationID, err := e.resolver.GetLocationID(ctx, accountingExport, &expense)
		if err != nil {
			return nil, err
		}

		dimensions, err := e.resolver.GetDimensionObjects(ctx, accountingExport, &expense)
		if err != nil {
			return nil, err
		}

		comment := GetExpenseComment(clusterDomain(fyleCredentials), workspace.OrgID, &expense, category, advancedSetting)

		lineItem := models.JournalEntryLineItem{
			WorkspaceID:              accountingExport.WorkspaceID,
			JournalEntryID:           entry.ID,
			ExpenseID:                expense.ID,
			AccountsPayableAccountID: optional(categoryMapping.DestinationAccount.DestinationID),
			AccountID:                optional(accountID),
			AccountType:              optional(accountType),
			Amount:                   expense.Amount.Neg(),
			Comment:                  comment,
			Description:              expense.Purpose,
			InvoiceDate:              GetInvoiceDate(accountingExport),
			DocumentNumber:           expense.ExpenseNumber,
			LocationID:               optional(locationID),
			Dimensions:               dimensions,
		}
		if err := stores.Documents.UpsertJournalEntryLineItem(ctx, &lineItem); err != nil {
			return nil, err
		}
		lineItems = append(lineItems, lineItem)
	}

	return lineItems, nil
}

// resolveJournalID picks the journal batch the lines are created under: the
// DEFAULT journal when present, otherwise the first one listed.
func (e *Exporter) resolveJournalID(ctx context.Context, connection DynamicsConnection) (string, error) {
	journals, err := connection.GetAll(ctx, "journals")
	if err != nil {
		return "", err
	}
	if len(journals) == 0 {
		return "", fmt.Errorf("no journals available in business central company")
	}

	for _, journal := range journals {
		if code, _ := journal["code"].(string); code == "DEFAULT" {
			if id, ok := journal["id"].(string); ok {
				return id, nil
			}
		}
	}
	if id, ok := journals[0]["id"].(string); ok {
		return id, nil
	}
	return "", fmt.Errorf("journal listing missing id field")
}

// postJournalDimensions is the second pass: each line's dimension
// assignments are posted against the external id returned for that line.
// Per-line outcomes land in the line's dimension logs; a dimension failure
// never fails the document.
func (e *Exporter) postJournalDimensions(
	ctx context.Context,
	stores *TxStores,
	lineItems []models.JournalEntryLineItem,
	envelope *dynamics.Envelope,
	connection DynamicsConnection,
) {
	for i, lineItem := range lineItems {
		if len(lineItem.Dimensions) == 0 || i >= len(envelope.Responses) {
			continue
		}
		externalID, _ := envelope.Responses[i].Body["id"].(string)
		if externalID == "" {
			continue
		}

		successLog := models.JSONBList{}
		errorLog := models.JSONBList{}

		for _, dimension := range lineItem.Dimensions {
			payload := map[string]interface{}{
				"id":        dimension.GetString("id"),
				"code":      dimension.GetString("code"),
				"valueId":   dimension.GetString("valueId"),
				"valueCode": dimension.GetString("valueCode"),
			}
			response, err := connection.PostDimensionSetLine(ctx, externalID, payload)
			if err != nil {
				logger.WithFields(logrus.Fields{
					"journal_line_id": externalID,
					"dimension":       dimension.GetString("code"),
				}).WithError(err).Info("dimension set line failed")
				errorLog = append(errorLog, models.JSONB{
					"dimension":      dimension,
					"error":          err.Error(),
					"expense_number": dimension.GetString("expense_number"),
				})
				continue
			}
			successLog = append(successLog, toJSONB(response))
		}

		if err := stores.Documents.UpdateDimensionLogs(ctx, lineItem.ID, successLog, errorLog); err != nil {
			logger.WithField("line_item_id", lineItem.ID).WithError(err).Error("failed to store dimension logs")
		}
	}
}

func clusterDomain(credentials *models.FyleCredentials) string {
	if credentials.ClusterDomain == nil {
		return ""
	}
	return *credentials.ClusterDomain
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
