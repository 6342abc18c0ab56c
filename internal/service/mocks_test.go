package service

import (
	"context"
	"time"

	"github.com/fyle-integrations/business-central-worker/internal/dynamics"
	"github.com/fyle-integrations/business-central-worker/internal/fyle"
	"github.com/fyle-integrations/business-central-worker/internal/models"
)

type mockWorkspaceStore struct {
	getByIDFunc                 func(ctx context.Context, workspaceID string) (*models.Workspace, error)
	getFyleCredentialsFunc      func(ctx context.Context, workspaceID string) (*models.FyleCredentials, error)
	getActiveBCCredentialsFunc  func(ctx context.Context, workspaceID string) (*models.BusinessCentralCredentials, error)
	expireBCCredentialsFunc     func(ctx context.Context, workspaceID string) error
	updateBCRefreshTokenFunc    func(ctx context.Context, workspaceID string, refreshToken string) error
	updateExpenseWatermarkFunc  func(ctx context.Context, workspaceID string, fundSource string, syncedAt time.Time) error
	updateDestinationSyncedFunc func(ctx context.Context, workspaceID string, syncedAt time.Time) error
}

func (m *mockWorkspaceStore) GetByID(ctx context.Context, workspaceID string) (*models.Workspace, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, workspaceID)
	}
	return &models.Workspace{ID: workspaceID}, nil
}

func (m *mockWorkspaceStore) GetFyleCredentials(ctx context.Context, workspaceID string) (*models.FyleCredentials, error) {
	if m.getFyleCredentialsFunc != nil {
		return m.getFyleCredentialsFunc(ctx, workspaceID)
	}
	return &models.FyleCredentials{WorkspaceID: workspaceID, RefreshToken: "refresh"}, nil
}

func (m *mockWorkspaceStore) GetActiveBusinessCentralCredentials(ctx context.Context, workspaceID string) (*models.BusinessCentralCredentials, error) {
	if m.getActiveBCCredentialsFunc != nil {
		return m.getActiveBCCredentialsFunc(ctx, workspaceID)
	}
	token := "bc-refresh"
	return &models.BusinessCentralCredentials{WorkspaceID: workspaceID, RefreshToken: &token}, nil
}

func (m *mockWorkspaceStore) ExpireBusinessCentralCredentials(ctx context.Context, workspaceID string) error {
	if m.expireBCCredentialsFunc != nil {
		return m.expireBCCredentialsFunc(ctx, workspaceID)
	}
	return nil
}

func (m *mockWorkspaceStore) UpdateBusinessCentralRefreshToken(ctx context.Context, workspaceID string, refreshToken string) error {
	if m.updateBCRefreshTokenFunc != nil {
		return m.updateBCRefreshTokenFunc(ctx, workspaceID, refreshToken)
	}
	return nil
}

func (m *mockWorkspaceStore) UpdateExpenseWatermark(ctx context.Context, workspaceID string, fundSource string, syncedAt time.Time) error {
	if m.updateExpenseWatermarkFunc != nil {
		return m.updateExpenseWatermarkFunc(ctx, workspaceID, fundSource, syncedAt)
	}
	return nil
}

func (m *mockWorkspaceStore) UpdateDestinationSyncedAt(ctx context.Context, workspaceID string, syncedAt time.Time) error {
	if m.updateDestinationSyncedFunc != nil {
		return m.updateDestinationSyncedFunc(ctx, workspaceID, syncedAt)
	}
	return nil
}

type mockSettingsStore struct {
	getExportSettingFunc   func(ctx context.Context, workspaceID string) (*models.ExportSetting, error)
	getImportSettingFunc   func(ctx context.Context, workspaceID string) (*models.ImportSetting, error)
	getAdvancedSettingFunc func(ctx context.Context, workspaceID string) (*models.AdvancedSetting, error)
}

func (m *mockSettingsStore) GetExportSetting(ctx context.Context, workspaceID string) (*models.ExportSetting, error) {
	if m.getExportSettingFunc != nil {
		return m.getExportSettingFunc(ctx, workspaceID)
	}
	return &models.ExportSetting{WorkspaceID: workspaceID}, nil
}

func (m *mockSettingsStore) GetImportSetting(ctx context.Context, workspaceID string) (*models.ImportSetting, error) {
	if m.getImportSettingFunc != nil {
		return m.getImportSettingFunc(ctx, workspaceID)
	}
	return &models.ImportSetting{WorkspaceID: workspaceID}, nil
}

func (m *mockSettingsStore) GetAdvancedSetting(ctx context.Context, workspaceID string) (*models.AdvancedSetting, error) {
	if m.getAdvancedSettingFunc != nil {
		return m.getAdvancedSettingFunc(ctx, workspaceID)
	}
	return &models.AdvancedSetting{WorkspaceID: workspaceID}, nil
}

type mockExportStore struct {
	getByIDFunc            func(ctx context.Context, exportID string) (*models.AccountingExport, error)
	upsertFetchExportFunc  func(ctx context.Context, workspaceID string, exportType string) (*models.AccountingExport, error)
	createWithExpensesFunc func(ctx context.Context, export *models.AccountingExport, expenses []models.Expense) error
	listExportableIDsFunc  func(ctx context.Context, workspaceID string, fundSource string) ([]string, error)
	markEnqueuedFunc       func(ctx context.Context, exportID string, exportType string) error
	updateStatusFunc       func(ctx context.Context, export *models.AccountingExport) error
	countByStatusesFunc    func(ctx context.Context, workspaceID string, statuses []string) (int64, error)
	upsertSummaryFunc      func(ctx context.Context, summary *models.AccountingExportSummary) error
	getSummaryFunc         func(ctx context.Context, workspaceID string) (*models.AccountingExportSummary, error)
}

func (m *mockExportStore) GetByID(ctx context.Context, exportID string) (*models.AccountingExport, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, exportID)
	}
	return &models.AccountingExport{ID: exportID}, nil
}

func (m *mockExportStore) UpsertFetchExport(ctx context.Context, workspaceID string, exportType string) (*models.AccountingExport, error) {
	if m.upsertFetchExportFunc != nil {
		return m.upsertFetchExportFunc(ctx, workspaceID, exportType)
	}
	return &models.AccountingExport{ID: "fetch-1", WorkspaceID: workspaceID, Type: exportType, Status: models.ExportStatusInProgress}, nil
}

func (m *mockExportStore) CreateWithExpenses(ctx context.Context, export *models.AccountingExport, expenses []models.Expense) error {
	if m.createWithExpensesFunc != nil {
		return m.createWithExpensesFunc(ctx, export, expenses)
	}
	return nil
}

func (m *mockExportStore) ListExportableIDs(ctx context.Context, workspaceID string, fundSource string) ([]string, error) {
	if m.listExportableIDsFunc != nil {
		return m.listExportableIDsFunc(ctx, workspaceID, fundSource)
	}
	return nil, nil
}

func (m *mockExportStore) MarkEnqueued(ctx context.Context, exportID string, exportType string) error {
	if m.markEnqueuedFunc != nil {
		return m.markEnqueuedFunc(ctx, exportID, exportType)
	}
	return nil
}

func (m *mockExportStore) UpdateStatus(ctx context.Context, export *models.AccountingExport) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, export)
	}
	return nil
}

func (m *mockExportStore) CountByStatuses(ctx context.Context, workspaceID string, statuses []string) (int64, error) {
	if m.countByStatusesFunc != nil {
		return m.countByStatusesFunc(ctx, workspaceID, statuses)
	}
	return 0, nil
}

func (m *mockExportStore) UpsertSummary(ctx context.Context, summary *models.AccountingExportSummary) error {
	if m.upsertSummaryFunc != nil {
		return m.upsertSummaryFunc(ctx, summary)
	}
	return nil
}

func (m *mockExportStore) GetSummary(ctx context.Context, workspaceID string) (*models.AccountingExportSummary, error) {
	if m.getSummaryFunc != nil {
		return m.getSummaryFunc(ctx, workspaceID)
	}
	return nil, nil
}

type mockErrorLedger struct {
	upsertByAttributeFunc        func(ctx context.Context, workspaceID string, attributeID string, errorType string, title string, detail string) (*models.Error, error)
	upsertByAccountingExportFunc func(ctx context.Context, workspaceID string, exportID string, errorType string, title string, detail string) (*models.Error, error)
	resolveForExportFunc         func(ctx context.Context, workspaceID string, exportID string) error
	getUnresolvedForExportFunc   func(ctx context.Context, workspaceID string, exportID string) (*models.Error, error)
	resolveForAttributesFunc     func(ctx context.Context, workspaceID string, attributeIDs []string) error
	listUnresolvedByTypeFunc     func(ctx context.Context, workspaceID string, errorType string) ([]models.Error, error)
}

func (m *mockErrorLedger) UpsertByAttribute(ctx context.Context, workspaceID string, attributeID string, errorType string, title string, detail string) (*models.Error, error) {
	if m.upsertByAttributeFunc != nil {
		return m.upsertByAttributeFunc(ctx, workspaceID, attributeID, errorType, title, detail)
	}
	return &models.Error{}, nil
}

func (m *mockErrorLedger) UpsertByAccountingExport(ctx context.Context, workspaceID string, exportID string, errorType string, title string, detail string) (*models.Error, error) {
	if m.upsertByAccountingExportFunc != nil {
		return m.upsertByAccountingExportFunc(ctx, workspaceID, exportID, errorType, title, detail)
	}
	return &models.Error{}, nil
}

func (m *mockErrorLedger) ResolveForExport(ctx context.Context, workspaceID string, exportID string) error {
	if m.resolveForExportFunc != nil {
		return m.resolveForExportFunc(ctx, workspaceID, exportID)
	}
	return nil
}

func (m *mockErrorLedger) GetUnresolvedForExport(ctx context.Context, workspaceID string, exportID string) (*models.Error, error) {
	if m.getUnresolvedForExportFunc != nil {
		return m.getUnresolvedForExportFunc(ctx, workspaceID, exportID)
	}
	return nil, nil
}

func (m *mockErrorLedger) ResolveForAttributes(ctx context.Context, workspaceID string, attributeIDs []string) error {
	if m.resolveForAttributesFunc != nil {
		return m.resolveForAttributesFunc(ctx, workspaceID, attributeIDs)
	}
	return nil
}

func (m *mockErrorLedger) ListUnresolvedByType(ctx context.Context, workspaceID string, errorType string) ([]models.Error, error) {
	if m.listUnresolvedByTypeFunc != nil {
		return m.listUnresolvedByTypeFunc(ctx, workspaceID, errorType)
	}
	return nil, nil
}

type mockMappingStore struct {
	getExpenseAttributeFunc              func(ctx context.Context, workspaceID string, attributeType string, value string) (*models.ExpenseAttribute, error)
	getExpenseAttributeByDisplayNameFunc func(ctx context.Context, workspaceID string, displayName string, value string) (*models.ExpenseAttribute, error)
	getDestinationAttributeByValueFunc   func(ctx context.Context, workspaceID string, attributeType string, value string) (*models.DestinationAttribute, error)
	getMappingFunc                       func(ctx context.Context, workspaceID string, sourceType string, destinationType string, sourceValue string) (*models.Mapping, error)
	getEmployeeMappingFunc               func(ctx context.Context, workspaceID string, employeeEmail string) (*models.EmployeeMapping, error)
	getCategoryMappingFunc               func(ctx context.Context, workspaceID string, category string) (*models.CategoryMapping, error)
	listMappingSettingsFunc              func(ctx context.Context, workspaceID string) ([]models.MappingSetting, error)
	getMappingSettingByDestinationFunc   func(ctx context.Context, workspaceID string, destinationField string) (*models.MappingSetting, error)
}

func (m *mockMappingStore) GetExpenseAttribute(ctx context.Context, workspaceID string, attributeType string, value string) (*models.ExpenseAttribute, error) {
	if m.getExpenseAttributeFunc != nil {
		return m.getExpenseAttributeFunc(ctx, workspaceID, attributeType, value)
	}
	return nil, nil
}

func (m *mockMappingStore) GetExpenseAttributeByDisplayName(ctx context.Context, workspaceID string, displayName string, value string) (*models.ExpenseAttribute, error) {
	if m.getExpenseAttributeByDisplayNameFunc != nil {
		return m.getExpenseAttributeByDisplayNameFunc(ctx, workspaceID, displayName, value)
	}
	return nil, nil
}

func (m *mockMappingStore) GetDestinationAttributeByValue(ctx context.Context, workspaceID string, attributeType string, value string) (*models.DestinationAttribute, error) {
	if m.getDestinationAttributeByValueFunc != nil {
		return m.getDestinationAttributeByValueFunc(ctx, workspaceID, attributeType, value)
	}
	return nil, nil
}

func (m *mockMappingStore) GetMapping(ctx context.Context, workspaceID string, sourceType string, destinationType string, sourceValue string) (*models.Mapping, error) {
	if m.getMappingFunc != nil {
		return m.getMappingFunc(ctx, workspaceID, sourceType, destinationType, sourceValue)
	}
	return nil, nil
}

func (m *mockMappingStore) GetEmployeeMapping(ctx context.Context, workspaceID string, employeeEmail string) (*models.EmployeeMapping, error) {
	if m.getEmployeeMappingFunc != nil {
		return m.getEmployeeMappingFunc(ctx, workspaceID, employeeEmail)
	}
	return nil, nil
}

func (m *mockMappingStore) GetCategoryMapping(ctx context.Context, workspaceID string, category string) (*models.CategoryMapping, error) {
	if m.getCategoryMappingFunc != nil {
		return m.getCategoryMappingFunc(ctx, workspaceID, category)
	}
	return nil, nil
}

func (m *mockMappingStore) ListMappingSettings(ctx context.Context, workspaceID string) ([]models.MappingSetting, error) {
	if m.listMappingSettingsFunc != nil {
		return m.listMappingSettingsFunc(ctx, workspaceID)
	}
	return nil, nil
}

func (m *mockMappingStore) GetMappingSettingByDestination(ctx context.Context, workspaceID string, destinationField string) (*models.MappingSetting, error) {
	if m.getMappingSettingByDestinationFunc != nil {
		return m.getMappingSettingByDestinationFunc(ctx, workspaceID, destinationField)
	}
	return nil, nil
}

type mockFylePlatform struct {
	listExpensesFunc         func(ctx context.Context, clusterDomain string, refreshToken string, filter fyle.ExpenseFilter) ([]fyle.Expense, error)
	bulkGenerateFileURLsFunc func(ctx context.Context, clusterDomain string, refreshToken string, fileIDs []string) ([]fyle.FileURL, error)
	listCategoriesFunc       func(ctx context.Context, clusterDomain string, refreshToken string, updatedAfter *time.Time) ([]fyle.Category, error)
	listEmployeesFunc        func(ctx context.Context, clusterDomain string, refreshToken string, updatedAfter *time.Time) ([]fyle.Employee, error)
	listProjectsFunc         func(ctx context.Context, clusterDomain string, refreshToken string, updatedAfter *time.Time) ([]fyle.Project, error)
	listCostCentersFunc      func(ctx context.Context, clusterDomain string, refreshToken string, updatedAfter *time.Time) ([]fyle.CostCenter, error)
	listExpenseFieldsFunc    func(ctx context.Context, clusterDomain string, refreshToken string) ([]fyle.ExpenseField, error)
}

func (m *mockFylePlatform) ListExpenses(ctx context.Context, clusterDomain string, refreshToken string, filter fyle.ExpenseFilter) ([]fyle.Expense, error) {
	if m.listExpensesFunc != nil {
		return m.listExpensesFunc(ctx, clusterDomain, refreshToken, filter)
	}
	return nil, nil
}

func (m *mockFylePlatform) BulkGenerateFileURLs(ctx context.Context, clusterDomain string, refreshToken string, fileIDs []string) ([]fyle.FileURL, error) {
	if m.bulkGenerateFileURLsFunc != nil {
		return m.bulkGenerateFileURLsFunc(ctx, clusterDomain, refreshToken, fileIDs)
	}
	return nil, nil
}

func (m *mockFylePlatform) ListCategories(ctx context.Context, clusterDomain string, refreshToken string, updatedAfter *time.Time) ([]fyle.Category, error) {
	if m.listCategoriesFunc != nil {
		return m.listCategoriesFunc(ctx, clusterDomain, refreshToken, updatedAfter)
	}
	return nil, nil
}

func (m *mockFylePlatform) ListEmployees(ctx context.Context, clusterDomain string, refreshToken string, updatedAfter *time.Time) ([]fyle.Employee, error) {
	if m.listEmployeesFunc != nil {
		return m.listEmployeesFunc(ctx, clusterDomain, refreshToken, updatedAfter)
	}
	return nil, nil
}

func (m *mockFylePlatform) ListProjects(ctx context.Context, clusterDomain string, refreshToken string, updatedAfter *time.Time) ([]fyle.Project, error) {
	if m.listProjectsFunc != nil {
		return m.listProjectsFunc(ctx, clusterDomain, refreshToken, updatedAfter)
	}
	return nil, nil
}

func (m *mockFylePlatform) ListCostCenters(ctx context.Context, clusterDomain string, refreshToken string, updatedAfter *time.Time) ([]fyle.CostCenter, error) {
	if m.listCostCentersFunc != nil {
		return m.listCostCentersFunc(ctx, clusterDomain, refreshToken, updatedAfter)
	}
	return nil, nil
}

func (m *mockFylePlatform) ListExpenseFields(ctx context.Context, clusterDomain string, refreshToken string) ([]fyle.ExpenseField, error) {
	if m.listExpenseFieldsFunc != nil {
		return m.listExpenseFieldsFunc(ctx, clusterDomain, refreshToken)
	}
	return nil, nil
}

type mockExpenseStore struct {
	bulkUpsertFunc  func(ctx context.Context, expenses []models.Expense) error
	markSkippedFunc func(ctx context.Context, expenseIDs []string) error
}

func (m *mockExpenseStore) BulkUpsert(ctx context.Context, expenses []models.Expense) error {
	if m.bulkUpsertFunc != nil {
		return m.bulkUpsertFunc(ctx, expenses)
	}
	return nil
}

func (m *mockExpenseStore) MarkSkipped(ctx context.Context, expenseIDs []string) error {
	if m.markSkippedFunc != nil {
		return m.markSkippedFunc(ctx, expenseIDs)
	}
	return nil
}

type mockDocumentStore struct {
	upsertJournalEntryFunc         func(ctx context.Context, entry *models.JournalEntry) error
	getJournalEntryFunc            func(ctx context.Context, exportID string) (*models.JournalEntry, error)
	upsertJournalEntryLineItemFunc func(ctx context.Context, lineItem *models.JournalEntryLineItem) error
	listJournalEntryLineItemsFunc  func(ctx context.Context, journalEntryID string) ([]models.JournalEntryLineItem, error)
	updateDimensionLogsFunc        func(ctx context.Context, lineItemID string, successLog models.JSONBList, errorLog models.JSONBList) error
	upsertPurchaseInvoiceFunc      func(ctx context.Context, invoice *models.PurchaseInvoice) error
	getPurchaseInvoiceFunc         func(ctx context.Context, exportID string) (*models.PurchaseInvoice, error)
	upsertPurchaseInvoiceLineFunc  func(ctx context.Context, lineItem *models.PurchaseInvoiceLineItem) error
	listPurchaseInvoiceLineFunc    func(ctx context.Context, invoiceID string) ([]models.PurchaseInvoiceLineItem, error)
}

func (m *mockDocumentStore) UpsertJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	if m.upsertJournalEntryFunc != nil {
		return m.upsertJournalEntryFunc(ctx, entry)
	}
	return nil
}

func (m *mockDocumentStore) GetJournalEntry(ctx context.Context, exportID string) (*models.JournalEntry, error) {
	if m.getJournalEntryFunc != nil {
		return m.getJournalEntryFunc(ctx, exportID)
	}
	return nil, nil
}

func (m *mockDocumentStore) UpsertJournalEntryLineItem(ctx context.Context, lineItem *models.JournalEntryLineItem) error {
	if m.upsertJournalEntryLineItemFunc != nil {
		return m.upsertJournalEntryLineItemFunc(ctx, lineItem)
	}
	return nil
}

func (m *mockDocumentStore) ListJournalEntryLineItems(ctx context.Context, journalEntryID string) ([]models.JournalEntryLineItem, error) {
	if m.listJournalEntryLineItemsFunc != nil {
		return m.listJournalEntryLineItemsFunc(ctx, journalEntryID)
	}
	return nil, nil
}

func (m *mockDocumentStore) UpdateDimensionLogs(ctx context.Context, lineItemID string, successLog models.JSONBList, errorLog models.JSONBList) error {
	if m.updateDimensionLogsFunc != nil {
		return m.updateDimensionLogsFunc(ctx, lineItemID, successLog, errorLog)
	}
	return nil
}

func (m *mockDocumentStore) UpsertPurchaseInvoice(ctx context.Context, invoice *models.PurchaseInvoice) error {
	if m.upsertPurchaseInvoiceFunc != nil {
		return m.upsertPurchaseInvoiceFunc(ctx, invoice)
	}
	return nil
}

func (m *mockDocumentStore) GetPurchaseInvoice(ctx context.Context, exportID string) (*models.PurchaseInvoice, error) {
	if m.getPurchaseInvoiceFunc != nil {
		return m.getPurchaseInvoiceFunc(ctx, exportID)
	}
	return nil, nil
}

func (m *mockDocumentStore) UpsertPurchaseInvoiceLineItem(ctx context.Context, lineItem *models.PurchaseInvoiceLineItem) error {
	if m.upsertPurchaseInvoiceLineFunc != nil {
		return m.upsertPurchaseInvoiceLineFunc(ctx, lineItem)
	}
	return nil
}

func (m *mockDocumentStore) ListPurchaseInvoiceLineItems(ctx context.Context, invoiceID string) ([]models.PurchaseInvoiceLineItem, error) {
	if m.listPurchaseInvoiceLineFunc != nil {
		return m.listPurchaseInvoiceLineFunc(ctx, invoiceID)
	}
	return nil, nil
}

// mockTransactor executes the callback directly against the given stores
// without a real transaction
type mockTransactor struct {
	stores *TxStores
}

func (m *mockTransactor) Transaction(ctx context.Context, fn func(stores *TxStores) error) error {
	return fn(m.stores)
}

type mockDimensionSyncer struct {
	syncDimensionsFunc func(ctx context.Context, workspaceID string) error
}

func (m *mockDimensionSyncer) SyncDimensions(ctx context.Context, workspaceID string) error {
	if m.syncDimensionsFunc != nil {
		return m.syncDimensionsFunc(ctx, workspaceID)
	}
	return nil
}

type mockConnection struct {
	refreshToken             string
	companyID                string
	getAllFunc               func(ctx context.Context, resource string) ([]map[string]interface{}, error)
	countFunc                func(ctx context.Context, resource string) (int, error)
	postFunc                 func(ctx context.Context, resource string, payload map[string]interface{}) (map[string]interface{}, error)
	postJournalLineItemsFunc func(ctx context.Context, journalID string, payloads []map[string]interface{}) (*dynamics.Envelope, error)
	postPurchaseInvoiceFunc  func(ctx context.Context, invoicePayload map[string]interface{}, linePayloads []map[string]interface{}) (map[string]interface{}, error)
	postDimensionSetLineFunc func(ctx context.Context, parentID string, payload map[string]interface{}) (map[string]interface{}, error)
	postAttachmentsFunc      func(ctx context.Context, parentType string, parentID string, attachments []dynamics.Attachment) error
}

func (m *mockConnection) RefreshToken() string {
	return m.refreshToken
}

func (m *mockConnection) SetCompanyID(companyID string) {
	m.companyID = companyID
}

func (m *mockConnection) GetAll(ctx context.Context, resource string) ([]map[string]interface{}, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx, resource)
	}
	return nil, nil
}

func (m *mockConnection) Count(ctx context.Context, resource string) (int, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, resource)
	}
	return 0, nil
}

func (m *mockConnection) Post(ctx context.Context, resource string, payload map[string]interface{}) (map[string]interface{}, error) {
	if m.postFunc != nil {
		return m.postFunc(ctx, resource, payload)
	}
	return nil, nil
}

func (m *mockConnection) PostJournalLineItems(ctx context.Context, journalID string, payloads []map[string]interface{}) (*dynamics.Envelope, error) {
	if m.postJournalLineItemsFunc != nil {
		return m.postJournalLineItemsFunc(ctx, journalID, payloads)
	}
	return &dynamics.Envelope{}, nil
}

func (m *mockConnection) PostPurchaseInvoice(ctx context.Context, invoicePayload map[string]interface{}, linePayloads []map[string]interface{}) (map[string]interface{}, error) {
	if m.postPurchaseInvoiceFunc != nil {
		return m.postPurchaseInvoiceFunc(ctx, invoicePayload, linePayloads)
	}
	return map[string]interface{}{}, nil
}

func (m *mockConnection) PostDimensionSetLine(ctx context.Context, parentID string, payload map[string]interface{}) (map[string]interface{}, error) {
	if m.postDimensionSetLineFunc != nil {
		return m.postDimensionSetLineFunc(ctx, parentID, payload)
	}
	return nil, nil
}

func (m *mockConnection) PostAttachments(ctx context.Context, parentType string, parentID string, attachments []dynamics.Attachment) error {
	if m.postAttachmentsFunc != nil {
		return m.postAttachmentsFunc(ctx, parentType, parentID, attachments)
	}
	return nil
}

type mockConnectorFactory struct {
	connectFunc func(ctx context.Context, refreshToken string) (DynamicsConnection, error)
}

func (m *mockConnectorFactory) Connect(ctx context.Context, refreshToken string) (DynamicsConnection, error) {
	if m.connectFunc != nil {
		return m.connectFunc(ctx, refreshToken)
	}
	return &mockConnection{refreshToken: refreshToken}, nil
}
