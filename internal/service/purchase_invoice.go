package service

import (
	"context"
	"fmt"

	"github.com/fyle-integrations/business-central-worker/internal/models"
)

// exportPurchaseInvoice builds the staging rows for one purchase-invoice
// export, posts the header plus lines, then uploads receipts best-effort.
func (e *Exporter) exportPurchaseInvoice(
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

	invoice, err := e.buildPurchaseInvoice(ctx, stores, accountingExport, workspace, fyleCredentials, exportSettings, advancedSetting)
	if err != nil {
		return nil, err
	}

	lineItems, err := e.buildPurchaseInvoiceLineItems(ctx, stores, accountingExport, exportSettings, advancedSetting, invoice)
	if err != nil {
		return nil, err
	}

	invoicePayload := map[string]interface{}{
		"vendorNumber": stringValue(invoice.VendorID),
		"invoiceDate":  invoice.InvoiceDate,
		"postingDate":  invoice.InvoiceDate,
	}

	linePayloads := make([]map[string]interface{}, 0, len(lineItems))
	for _, lineItem := range lineItems {
		payload := map[string]interface{}{
			"lineType":         "Account",
			"lineObjectNumber": stringValue(lineItem.AccountsPayableAccountID),
			"unitCost":         lineItem.Amount.InexactFloat64(),
			"quantity":         1,
		}
		if lineItem.Description != "" {
			payload["description"] = lineItem.Description
		}
		if lineItem.LocationID != nil {
			payload["locationId"] = *lineItem.LocationID
		}
		linePayloads = append(linePayloads, payload)
	}

	response, err := connection.PostPurchaseInvoice(ctx, invoicePayload, linePayloads)
	if err != nil {
		return nil, err
	}

	if header, ok := response["purchase_invoice_response"].(map[string]interface{}); ok {
		if invoiceID, ok := header["id"].(string); ok && invoiceID != "" {
			e.loadInvoiceAttachments(ctx, accountingExport, fyleCredentials, connection, invoiceID)
		}
	}

	return toJSONB(response), nil
}

func (e *Exporter) buildPurchaseInvoice(
	ctx context.Context,
	stores *TxStores,
	accountingExport *models.AccountingExport,
	workspace *models.Workspace,
	fyleCredentials *models.FyleCredentials,
	exportSettings *models.ExportSetting,
	advancedSetting *models.AdvancedSetting,
) (*models.PurchaseInvoice, error) {
	expense := accountingExport.Expenses[0]

	_, vendorNumber, err := e.resolver.GetAccountIDType(ctx, accountingExport, exportSettings, expense.VendorName())
	if err != nil {
		return nil, err
	}

	total := accountingExport.Expenses[0].Amount
	for _, item := range accountingExport.Expenses[1:] {
		total = total.Add(item.Amount)
	}

	comment := GetExpenseComment(clusterDomain(fyleCredentials), workspace.OrgID, &expense, expense.EffectiveCategory(), advancedSetting)

	invoice := &models.PurchaseInvoice{
		WorkspaceID:        accountingExport.WorkspaceID,
		AccountingExportID: accountingExport.ID,
		VendorID:           optional(vendorNumber),
		Amount:             total,
		Description:        comment,
		InvoiceDate:        GetInvoiceDate(accountingExport),
	}
	if err := stores.Documents.UpsertPurchaseInvoice(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

func (e *Exporter) buildPurchaseInvoiceLineItems(
	ctx context.Context,
	stores *TxStores,
	accountingExport *models.AccountingExport,
	exportSettings *models.ExportSetting,
	advancedSetting *models.AdvancedSetting,
	invoice *models.PurchaseInvoice,
) ([]models.PurchaseInvoiceLineItem, error) {
	lineItems := make([]models.PurchaseInvoiceLineItem, 0, len(accountingExport.Expenses))

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

		locationID, err := e.resolver.GetLocationID(ctx, accountingExport, &expense)
		if err != nil {
			return nil, err
		}

		description := GetExpensePurpose(&expense, category, advancedSetting)

		lineItem := models.PurchaseInvoiceLineItem{
			WorkspaceID:              accountingExport.WorkspaceID,
			PurchaseInvoiceID:        invoice.ID,
			ExpenseID:                expense.ID,
			AccountsPayableAccountID: optional(categoryMapping.DestinationAccount.DestinationID),
			Amount:                   expense.Amount,
			Description:              description,
			LocationID:               optional(locationID),
		}
		if err := stores.Documents.UpsertPurchaseInvoiceLineItem(ctx, &lineItem); err != nil {
			return nil, err
		}
		lineItems = append(lineItems, lineItem)
	}

	return lineItems, nil
}
