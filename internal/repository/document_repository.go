package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyle-integrations/business-central-worker/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrDocumentNotFound = errors.New("document not found")

// DocumentRepository persists the regenerable staging rows for both document
// types. All writes are upserts keyed by the accounting export (and expense,
// for line items) so rebuilding overwrites rather than duplicates.
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *DocumentRepository) WithTx(tx *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

// UpsertJournalEntry writes the journal entry body keyed by accounting export
func (r *DocumentRepository) UpsertJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "accounting_export_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"accounts_payable_account_id", "account_id", "account_type", "amount",
			"comment", "description", "invoice_date", "document_number", "updated_at",
		}),
	}).Create(entry)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert journal entry: %w", result.Error)
	}
	return r.db.WithContext(ctx).First(entry, "accounting_export_id = ?", entry.AccountingExportID).Error
}

// GetJournalEntry retrieves the journal entry body for an accounting export
func (r *DocumentRepository) GetJournalEntry(ctx context.Context, exportID string) (*models.JournalEntry, error) {
	var entry models.JournalEntry
	result := r.db.WithContext(ctx).First(&entry, "accounting_export_id = ?", exportID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get journal entry: %w", result.Error)
	}
	return &entry, nil
}

// UpsertJournalEntryLineItem writes one journal line keyed by (journal entry, expense)
func (r *DocumentRepository) UpsertJournalEntryLineItem(ctx context.Context, lineItem *models.JournalEntryLineItem) error {
	if lineItem.ID == "" {
		lineItem.ID = uuid.New().String()
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "journal_entry_id"}, {Name: "expense_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"accounts_payable_account_id", "account_id", "account_type", "amount",
			"comment", "description", "invoice_date", "document_number",
			"location_id", "dimensions", "updated_at",
		}),
	}).Create(lineItem)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert journal entry line item: %w", result.Error)
	}
	return r.db.WithContext(ctx).
		First(lineItem, "journal_entry_id = ? AND expense_id = ?", lineItem.JournalEntryID, lineItem.ExpenseID).Error
}

// ListJournalEntryLineItems returns the lines for one journal entry
func (r *DocumentRepository) ListJournalEntryLineItems(ctx context.Context, journalEntryID string) ([]models.JournalEntryLineItem, error) {
	var lineItems []models.JournalEntryLineItem
	result := r.db.WithContext(ctx).
		Where("journal_entry_id = ?", journalEntryID).
		Order("created_at ASC").
		Find(&lineItems)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list journal entry line items: %w", result.Error)
	}
	return lineItems, nil
}

// UpdateDimensionLogs records the outcome of the dimension-set second pass on
// the owning line-item row
func (r *DocumentRepository) UpdateDimensionLogs(ctx context.Context, lineItemID string, successLog models.JSONBList, errorLog models.JSONBList) error {
	result := r.db.WithContext(ctx).Model(&models.JournalEntryLineItem{}).
		Where("id = ?", lineItemID).
		Updates(map[string]interface{}{
			"dimension_success_log": successLog,
			"dimension_error_log":   errorLog,
			"updated_at":            time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update dimension logs: %w", result.Error)
	}
	return nil
}

// UpsertPurchaseInvoice writes the invoice header keyed by accounting export
func (r *DocumentRepository) UpsertPurchaseInvoice(ctx context.Context, invoice *models.PurchaseInvoice) error {
	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "accounting_export_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"vendor_id", "amount", "tax_amount", "description", "invoice_date",
			"accounting_date", "updated_at",
		}),
	}).Create(invoice)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert purchase invoice: %w", result.Error)
	}
	return r.db.WithContext(ctx).First(invoice, "accounting_export_id = ?", invoice.AccountingExportID).Error
}

// GetPurchaseInvoice retrieves the invoice header for an accounting export
func (r *DocumentRepository) GetPurchaseInvoice(ctx context.Context, exportID string) (*models.PurchaseInvoice, error) {
	var invoice models.PurchaseInvoice
	result := r.db.WithContext(ctx).First(&invoice, "accounting_export_id = ?", exportID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get purchase invoice: %w", result.Error)
	}
	return &invoice, nil
}

// UpsertPurchaseInvoiceLineItem writes one invoice line keyed by (invoice, expense)
func (r *DocumentRepository) UpsertPurchaseInvoiceLineItem(ctx context.Context, lineItem *models.PurchaseInvoiceLineItem) error {
	if lineItem.ID == "" {
		lineItem.ID = uuid.New().String()
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "purchase_invoice_id"}, {Name: "expense_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"accounts_payable_account_id", "amount", "tax_amount", "description",
			"location_id", "updated_at",
		}),
	}).Create(lineItem)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert purchase invoice line item: %w", result.Error)
	}
	return r.db.WithContext(ctx).
		First(lineItem, "purchase_invoice_id = ? AND expense_id = ?", lineItem.PurchaseInvoiceID, lineItem.ExpenseID).Error
}

// ListPurchaseInvoiceLineItems returns the lines for one invoice
func (r *DocumentRepository) ListPurchaseInvoiceLineItems(ctx context.Context, invoiceID string) ([]models.PurchaseInvoiceLineItem, error) {
	var lineItems []models.PurchaseInvoiceLineItem
	result := r.db.WithContext(ctx).
		Where("purchase_invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&lineItems)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list purchase invoice line items: %w", result.Error)
	}
	return lineItems, nil
}
