package service

import (
	"context"
	"time"

	"github.com/fyle-integrations/business-central-worker/internal/dynamics"
	"github.com/fyle-integrations/business-central-worker/internal/fyle"
	"github.com/fyle-integrations/business-central-worker/internal/models"
	"github.com/fyle-integrations/business-central-worker/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var logger = logrus.StandardLogger()

// WorkspaceStore is the workspace/credentials surface used by the services
type WorkspaceStore interface {
	GetByID(ctx context.Context, workspaceID string) (*models.Workspace, error)
	GetFyleCredentials(ctx context.Context, workspaceID string) (*models.FyleCredentials, error)
	GetActiveBusinessCentralCredentials(ctx context.Context, workspaceID string) (*models.BusinessCentralCredentials, error)
	ExpireBusinessCentralCredentials(ctx context.Context, workspaceID string) error
	UpdateBusinessCentralRefreshToken(ctx context.Context, workspaceID string, refreshToken string) error
	UpdateExpenseWatermark(ctx context.Context, workspaceID string, fundSource string, syncedAt time.Time) error
	UpdateDestinationSyncedAt(ctx context.Context, workspaceID string, syncedAt time.Time) error
}

// SettingsStore reads the per-workspace configuration rows
type SettingsStore interface {
	GetExportSetting(ctx context.Context, workspaceID string) (*models.ExportSetting, error)
	GetImportSetting(ctx context.Context, workspaceID string) (*models.ImportSetting, error)
	GetAdvancedSetting(ctx context.Context, workspaceID string) (*models.AdvancedSetting, error)
}

// ExportStore is the accounting-export lifecycle surface
type ExportStore interface {
	GetByID(ctx context.Context, exportID string) (*models.AccountingExport, error)
	UpsertFetchExport(ctx context.Context, workspaceID string, exportType string) (*models.AccountingExport, error)
	CreateWithExpenses(ctx context.Context, export *models.AccountingExport, expenses []models.Expense) error
	ListExportableIDs(ctx context.Context, workspaceID string, fundSource string) ([]string, error)
	MarkEnqueued(ctx context.Context, exportID string, exportType string) error
	UpdateStatus(ctx context.Context, export *models.AccountingExport) error
	CountByStatuses(ctx context.Context, workspaceID string, statuses []string) (int64, error)
	UpsertSummary(ctx context.Context, summary *models.AccountingExportSummary) error
	GetSummary(ctx context.Context, workspaceID string) (*models.AccountingExportSummary, error)
}

// ExpenseStore persists fetched expense snapshots
type ExpenseStore interface {
	BulkUpsert(ctx context.Context, expenses []models.Expense) error
	MarkSkipped(ctx context.Context, expenseIDs []string) error
}

// DocumentStore persists the staging body/line rows per document type
type DocumentStore interface {
	UpsertJournalEntry(ctx context.Context, entry *models.JournalEntry) error
	GetJournalEntry(ctx context.Context, exportID string) (*models.JournalEntry, error)
	UpsertJournalEntryLineItem(ctx context.Context, lineItem *models.JournalEntryLineItem) error
	ListJournalEntryLineItems(ctx context.Context, journalEntryID string) ([]models.JournalEntryLineItem, error)
	UpdateDimensionLogs(ctx context.Context, lineItemID string, successLog models.JSONBList, errorLog models.JSONBList) error
	UpsertPurchaseInvoice(ctx context.Context, invoice *models.PurchaseInvoice) error
	GetPurchaseInvoice(ctx context.Context, exportID string) (*models.PurchaseInvoice, error)
	UpsertPurchaseInvoiceLineItem(ctx context.Context, lineItem *models.PurchaseInvoiceLineItem) error
	ListPurchaseInvoiceLineItems(ctx context.Context, invoiceID string) ([]models.PurchaseInvoiceLineItem, error)
}

// FylePlatform is the Fyle client surface
type FylePlatform interface {
	ListExpenses(ctx context.Context, clusterDomain string, refreshToken string, filter fyle.ExpenseFilter) ([]fyle.Expense, error)
	BulkGenerateFileURLs(ctx context.Context, clusterDomain string, refreshToken string, fileIDs []string) ([]fyle.FileURL, error)
	ListCategories(ctx context.Context, clusterDomain string, refreshToken string, updatedAfter *time.Time) ([]fyle.Category, error)
	ListEmployees(ctx context.Context, clusterDomain string, refreshToken string, updatedAfter *time.Time) ([]fyle.Employee, error)
	ListProjects(ctx context.Context, clusterDomain string, refreshToken string, updatedAfter *time.Time) ([]fyle.Project, error)
	ListCostCenters(ctx context.Context, clusterDomain string, refreshToken string, updatedAfter *time.Time) ([]fyle.CostCenter, error)
	ListExpenseFields(ctx context.Context, clusterDomain string, refreshToken string) ([]fyle.ExpenseField, error)
}

// DynamicsConnection is one company-scoped Business Central connection
type DynamicsConnection interface {
	RefreshToken() string
	SetCompanyID(companyID string)
	GetAll(ctx context.Context, resource string) ([]map[string]interface{}, error)
	Count(ctx context.Context, resource string) (int, error)
	Post(ctx context.Context, resource string, payload map[string]interface{}) (map[string]interface{}, error)
	PostJournalLineItems(ctx context.Context, journalID string, payloads []map[string]interface{}) (*dynamics.Envelope, error)
	PostPurchaseInvoice(ctx context.Context, invoicePayload map[string]interface{}, linePayloads []map[string]interface{}) (map[string]interface{}, error)
	PostDimensionSetLine(ctx context.Context, parentID string, payload map[string]interface{}) (map[string]interface{}, error)
	PostAttachments(ctx context.Context, parentType string, parentID string, attachments []dynamics.Attachment) error
}

// ConnectorFactory builds a fresh connection from a stored refresh token
type ConnectorFactory interface {
	Connect(ctx context.Context, refreshToken string) (DynamicsConnection, error)
}

// DynamicsFactory is the production ConnectorFactory
type DynamicsFactory struct {
	cfg dynamics.Config
}

func NewDynamicsFactory(cfg dynamics.Config) *DynamicsFactory {
	return &DynamicsFactory{cfg: cfg}
}

func (f *DynamicsFactory) Connect(ctx context.Context, refreshToken string) (DynamicsConnection, error) {
	return dynamics.NewClient(ctx, f.cfg, refreshToken)
}

// TxStores are transaction-bound copies of the write stores passed to a
// Transaction callback
type TxStores struct {
	Exports    ExportStore
	Documents  DocumentStore
	Errors     ErrorLedger
	Expenses   ExpenseStore
	Workspaces WorkspaceStore
}

// Transactor runs a callback inside one database transaction so that
// document rows, status flips and error resolution are not torn by a crash
type Transactor interface {
	Transaction(ctx context.Context, fn func(stores *TxStores) error) error
}

// GormTransactor is the production Transactor
type GormTransactor struct {
	db *gorm.DB
}

func NewGormTransactor(db *gorm.DB) *GormTransactor {
	return &GormTransactor{db: db}
}

func (t *GormTransactor) Transaction(ctx context.Context, fn func(stores *TxStores) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stores := &TxStores{
			Exports:    repository.NewAccountingExportRepository(tx),
			Documents:  repository.NewDocumentRepository(tx),
			Errors:     repository.NewErrorRepository(tx),
			Expenses:   repository.NewExpenseRepository(tx),
			Workspaces: repository.NewWorkspaceRepository(tx),
		}
		return fn(stores)
	})
}
