package service

import (
	"context"

	"github.com/fyle-integrations/business-central-worker/internal/dynamics"
	"github.com/fyle-integrations/business-central-worker/internal/models"
)

// loadAttachments uploads each expense's receipts against the journal line
// created for it. Receipt failures are logged and swallowed; the export
// outcome is already decided by the time attachments run.
func (e *Exporter) loadAttachments(
	ctx context.Context,
	accountingExport *models.AccountingExport,
	fyleCredentials *models.FyleCredentials,
	connection DynamicsConnection,
	parentType string,
	envelope *dynamics.Envelope,
) {
	for i := range accountingExport.Expenses {
		expense := accountingExport.Expenses[i]
		if len(expense.FileIDs) == 0 || i >= len(envelope.Responses) {
			continue
		}
		parentID, _ := envelope.Responses[i].Body["id"].(string)
		if parentID == "" {
			continue
		}
		e.attachReceipts(ctx, fyleCredentials, connection, parentType, parentID, &expense)
	}
}

// loadInvoiceAttachments uploads every expense's receipts against the single
// invoice header.
func (e *Exporter) loadInvoiceAttachments(
	ctx context.Context,
	accountingExport *models.AccountingExport,
	fyleCredentials *models.FyleCredentials,
	connection DynamicsConnection,
	invoiceID string,
) {
	for i := range accountingExport.Expenses {
		expense := accountingExport.Expenses[i]
		if len(expense.FileIDs) == 0 {
			continue
		}
		e.attachReceipts(ctx, fyleCredentials, connection, "Purchase Invoice", invoiceID, &expense)
	}
}

func (e *Exporter) attachReceipts(
	ctx context.Context,
	fyleCredentials *models.FyleCredentials,
	connection DynamicsConnection,
	parentType string,
	parentID string,
	expense *models.Expense,
) {
	fileURLs, err := e.fylePlatform.BulkGenerateFileURLs(ctx, clusterDomain(fyleCredentials), fyleCredentials.RefreshToken, expense.FileIDs)
	if err != nil {
		logger.WithField("expense_id", expense.ExpenseID).WithError(err).Info("failed to generate receipt urls")
		return
	}

	attachments := make([]dynamics.Attachment, 0, len(fileURLs))
	for _, fileURL := range fileURLs {
		attachments = append(attachments, dynamics.Attachment{
			FileName:    fileURL.Name,
			DownloadURL: fileURL.DownloadURL,
			ContentType: fileURL.ContentType,
		})
	}
	if len(attachments) == 0 {
		return
	}

	if err := connection.PostAttachments(ctx, parentType, parentID, attachments); err != nil {
		logger.WithField("expense_id", expense.ExpenseID).WithError(err).Info("failed to upload receipts")
	}
}
