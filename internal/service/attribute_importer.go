package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fyle-integrations/business-central-worker/internal/models"
	"github.com/fyle-integrations/business-central-worker/internal/repository"
)

const autoMapPageSize = 200

// AttributeImportStore is the attribute-store surface the source-side import
// needs: bulk writes plus the lookups feeding auto-map and error resolution.
type AttributeImportStore interface {
	BulkUpsertExpenseAttributes(ctx context.Context, attributes []models.ExpenseAttribute) error
	ListDestinationAttributes(ctx context.Context, workspaceID string, attributeType string) ([]models.DestinationAttribute, error)
	ListUnmappedEmployeeAttributes(ctx context.Context, workspaceID string, destinationType string, limit int, offset int) ([]models.ExpenseAttribute, error)
	UpsertEmployeeMapping(ctx context.Context, mapping models.EmployeeMapping) error
	MarkAutoMapped(ctx context.Context, attributeIDs []string) error
	GetExpenseAttributeByID(ctx context.Context, attributeID string) (*models.ExpenseAttribute, error)
	GetEmployeeMapping(ctx context.Context, workspaceID string, employeeEmail string) (*models.EmployeeMapping, error)
	GetCategoryMapping(ctx context.Context, workspaceID string, category string) (*models.CategoryMapping, error)
	ListMappingSettings(ctx context.Context, workspaceID string) ([]models.MappingSetting, error)
}

// ImportLogStore tracks per-(workspace, attribute type) import runs
type ImportLogStore interface {
	GetOrCreate(ctx context.Context, workspaceID string, attributeType string) (*models.ImportLog, error)
	MarkInProgress(ctx context.Context, logID string, totalBatches int) error
	IncrementProcessedBatches(ctx context.Context, logID string) error
	MarkComplete(ctx context.Context, logID string, completedAt time.Time) error
	MarkFailed(ctx context.Context, logID string, status string, errorLog models.JSONB) error
}

// AttributeImporter pulls source-side dimension values (employees,
// categories, projects, cost centers, merchants, custom fields) from the
// expense platform into the attribute store, auto-maps employees where
// configured, and resolves ledger errors once the missing mappings exist.
type AttributeImporter struct {
	workspaceStore WorkspaceStore
	settingsStore  SettingsStore
	attributeStore AttributeImportStore
	importLogStore ImportLogStore
	errorLedger    ErrorLedger
	fylePlatform   FylePlatform
}

func NewAttributeImporter(
	workspaceStore WorkspaceStore,
	settingsStore SettingsStore,
	attributeStore AttributeImportStore,
	importLogStore ImportLogStore,
	errorLedger ErrorLedger,
	fylePlatform FylePlatform,
) *AttributeImporter {
	return &AttributeImporter{
		workspaceStore: workspaceStore,
		settingsStore:  settingsStore,
		attributeStore: attributeStore,
		importLogStore: importLogStore,
		errorLedger:    errorLedger,
		fylePlatform:   fylePlatform,
	}
}

// ImportAttributes runs every applicable source import module for one
// workspace. Module failures are isolated: one failing dimension does not
// stop the others, but the first failure is returned.
func (i *AttributeImporter) ImportAttributes(ctx context.Context, workspaceID string) error {
	fyleCredentials, err := i.workspaceStore.GetFyleCredentials(ctx, workspaceID)
	if err != nil {
		return err
	}
	exportSettings, err := i.settingsStore.GetExportSetting(ctx, workspaceID)
	if err != nil && !errors.Is(err, repository.ErrExportSettingNotFound) {
		return err
	}
	importSettings, err := i.settingsStore.GetImportSetting(ctx, workspaceID)
	if err != nil && !errors.Is(err, repository.ErrImportSettingNotFound) {
		return err
	}
	mappingSettings, err := i.attributeStore.ListMappingSettings(ctx, workspaceID)
	if err != nil {
		return err
	}

	domain := clusterDomain(fyleCredentials)
	refreshToken := fyleCredentials.RefreshToken

	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(i.runModule(ctx, workspaceID, models.AttributeTypeEmployee, func(watermark *time.Time) error {
		if err := i.importEmployees(ctx, workspaceID, domain, refreshToken, watermark); err != nil {
			return err
		}
		if exportSettings != nil && exportSettings.AutoMapEmployees {
			if err := i.autoMapEmployees(ctx, workspaceID, exportSettings.EmployeeFieldMapping); err != nil {
				return err
			}
		}
		return i.resolveMappingErrors(ctx, workspaceID, models.ErrorTypeEmployeeMapping)
	}))

	record(i.runModule(ctx, workspaceID, models.AttributeTypeCategory, func(watermark *time.Time) error {
		if err := i.importCategories(ctx, workspaceID, domain, refreshToken, watermark); err != nil {
			return err
		}
		return i.resolveMappingErrors(ctx, workspaceID, models.ErrorTypeCategoryMapping)
	}))

	if hasSourceField(mappingSettings, models.AttributeTypeProject) {
		record(i.runModule(ctx, workspaceID, models.AttributeTypeProject, func(watermark *time.Time) error {
			return i.importProjects(ctx, workspaceID, domain, refreshToken, watermark)
		}))
	}

	if hasSourceField(mappingSettings, models.AttributeTypeCostCenter) {
		record(i.runModule(ctx, workspaceID, models.AttributeTypeCostCenter, func(watermark *time.Time) error {
			return i.importCostCenters(ctx, workspaceID, domain, refreshToken, watermark)
		}))
	}

	if importSettings != nil && importSettings.ImportVendorsAsMerchants {
		record(i.runModule(ctx, workspaceID, models.AttributeTypeMerchant, func(*time.Time) error {
			return i.importMerchantsFromVendors(ctx, workspaceID)
		}))
	}

	if hasCustomSourceField(mappingSettings) {
		record(i.runModule(ctx, workspaceID, "CUSTOM_FIELD", func(*time.Time) error {
			return i.importCustomFields(ctx, workspaceID, domain, refreshToken, mappingSettings)
		}))
	}

	return firstErr
}

// runModule wraps one dimension import with the ImportLog lifecycle: no-op
// while a previous run still has pending batches, FAILED with the error log
// on failure, COMPLETE with the watermark stamped on success.
func (i *AttributeImporter) runModule(ctx context.Context, workspaceID string, attributeType string, run func(watermark *time.Time) error) error {
	log := logger.WithFields(logrus.Fields{
		"workspace_id":   workspaceID,
		"attribute_type": attributeType,
	})

	importLog, err := i.importLogStore.GetOrCreate(ctx, workspaceID, attributeType)
	if err != nil {
		return err
	}
	if importLog.InProgressWithPendingBatches() {
		log.Info("previous import still in progress, skipping")
		return nil
	}

	if err := i.importLogStore.MarkInProgress(ctx, importLog.ID, 1); err != nil {
		return err
	}

	if err := run(importLog.LastSuccessfulRunAt); err != nil {
		log.WithError(err).Error("attribute import failed")
		if markErr := i.importLogStore.MarkFailed(ctx, importLog.ID, models.ImportStatusFailed, models.JSONB{"error": err.Error()}); markErr != nil {
			log.WithError(markErr).Error("failed to record import failure")
		}
		return err
	}

	if err := i.importLogStore.IncrementProcessedBatches(ctx, importLog.ID); err != nil {
		return err
	}
	return i.importLogStore.MarkComplete(ctx, importLog.ID, time.Now())
}

func (i *AttributeImporter) importEmployees(ctx context.Context, workspaceID, domain, refreshToken string, watermark *time.Time) error {
	employees, err := i.fylePlatform.ListEmployees(ctx, domain, refreshToken, watermark)
	if err != nil {
		return err
	}

	attributes := make([]models.ExpenseAttribute, 0, len(employees))
	for _, employee := range employees {
		if employee.User.Email == "" {
			continue
		}
		attributes = append(attributes, models.ExpenseAttribute{
			WorkspaceID:   workspaceID,
			AttributeType: models.AttributeTypeEmployee,
			DisplayName:   employee.User.FullName,
			Value:         employee.User.Email,
			SourceID:      optional(employee.ID),
			Active:        employee.IsEnabled,
		})
	}
	return i.bulkUpsert(ctx, attributes)
}

func (i *AttributeImporter) importCategories(ctx context.Context, workspaceID, domain, refreshToken string, watermark *time.Time) error {
	categories, err := i.fylePlatform.ListCategories(ctx, domain, refreshToken, watermark)
	if err != nil {
		return err
	}

	attributes := make([]models.ExpenseAttribute, 0, len(categories))
	for _, category := range categories {
		value := category.DisplayValue()
		if value == "" {
			continue
		}
		attributes = append(attributes, models.ExpenseAttribute{
			WorkspaceID:   workspaceID,
			AttributeType: models.AttributeTypeCategory,
			DisplayName:   value,
			Value:         value,
			SourceID:      optional(category.ID.String()),
			Active:        category.IsEnabled,
		})
	}
	return i.bulkUpsert(ctx, attributes)
}

func (i *AttributeImporter) importProjects(ctx context.Context, workspaceID, domain, refreshToken string, watermark *time.Time) error {
	projects, err := i.fylePlatform.ListProjects(ctx, domain, refreshToken, watermark)
	if err != nil {
		return err
	}

	attributes := make([]models.ExpenseAttribute, 0, len(projects))
	for _, project := range projects {
		value := project.DisplayValue()
		if value == "" {
			continue
		}
		attributes = append(attributes, models.ExpenseAttribute{
			WorkspaceID:   workspaceID,
			AttributeType: models.AttributeTypeProject,
			DisplayName:   value,
			Value:         value,
			SourceID:      optional(project.ID.String()),
			Active:        project.IsEnabled,
		})
	}
	return i.bulkUpsert(ctx, attributes)
}

func (i *AttributeImporter) importCostCenters(ctx context.Context, workspaceID, domain, refreshToken string, watermark *time.Time) error {
	costCenters, err := i.fylePlatform.ListCostCenters(ctx, domain, refreshToken, watermark)
	if err != nil {
		return err
	}

	attributes := make([]models.ExpenseAttribute, 0, len(costCenters))
	for _, costCenter := range costCenters {
		if costCenter.Name == "" {
			continue
		}
		attributes = append(attributes, models.ExpenseAttribute{
			WorkspaceID:   workspaceID,
			AttributeType: models.AttributeTypeCostCenter,
			DisplayName:   costCenter.Name,
			Value:         costCenter.Name,
			SourceID:      optional(costCenter.ID.String()),
			Active:        costCenter.IsEnabled,
		})
	}
	return i.bulkUpsert(ctx, attributes)
}

// importMerchantsFromVendors mirrors the synced Business Central vendors into
// merchant source attributes so CCC merchant matching has values to hit.
func (i *AttributeImporter) importMerchantsFromVendors(ctx context.Context, workspaceID string) error {
	vendors, err := i.attributeStore.ListDestinationAttributes(ctx, workspaceID, models.DestinationTypeVendor)
	if err != nil {
		return err
	}

	attributes := make([]models.ExpenseAttribute, 0, len(vendors))
	for _, vendor := range vendors {
		if vendor.DisplayName == "" || !vendor.Active {
			continue
		}
		attributes = append(attributes, models.ExpenseAttribute{
			WorkspaceID:   workspaceID,
			AttributeType: models.AttributeTypeMerchant,
			DisplayName:   vendor.DisplayName,
			Value:         vendor.DisplayName,
			Active:        true,
			AutoCreated:   true,
		})
	}
	return i.bulkUpsert(ctx, attributes)
}

// importCustomFields imports the option lists of custom SELECT expense
// fields referenced by a custom mapping setting.
func (i *AttributeImporter) importCustomFields(ctx context.Context, workspaceID, domain, refreshToken string, mappingSettings []models.MappingSetting) error {
	wanted := map[string]bool{}
	for _, setting := range mappingSettings {
		if setting.IsCustom {
			wanted[strings.ToLower(setting.SourceField)] = true
		}
	}
	if len(wanted) == 0 {
		return nil
	}

	fields, err := i.fylePlatform.ListExpenseFields(ctx, domain, refreshToken)
	if err != nil {
		return err
	}

	attributes := []models.ExpenseAttribute{}
	for _, field := range fields {
		if !field.IsCustom || field.Type != "SELECT" || !field.IsEnabled {
			continue
		}
		attributeType := dimensionAttributeType(field.FieldName)
		if !wanted[strings.ToLower(attributeType)] && !wanted[strings.ToLower(field.FieldName)] {
			continue
		}
		for _, option := range field.Options {
			if option == "" {
				continue
			}
			attributes = append(attributes, models.ExpenseAttribute{
				WorkspaceID:   workspaceID,
				AttributeType: attributeType,
				DisplayName:   field.FieldName,
				Value:         option,
				Active:        true,
				Detail:        models.JSONB{"custom_field_id": field.ID.String()},
			})
		}
	}
	return i.bulkUpsert(ctx, attributes)
}

func (i *AttributeImporter) bulkUpsert(ctx context.Context, attributes []models.ExpenseAttribute) error {
	if len(attributes) == 0 {
		return nil
	}
	return i.attributeStore.BulkUpsertExpenseAttributes(ctx, attributes)
}

// autoMapEmployees pairs unmapped source employees with destination
// employees or vendors by exact lower-cased email or name equality.
func (i *AttributeImporter) autoMapEmployees(ctx context.Context, workspaceID string, employeeFieldMapping string) error {
	destinationType := models.DestinationTypeEmployeeBC
	if employeeFieldMapping == models.EmployeeFieldMappingVendor {
		destinationType = models.DestinationTypeVendor
	}

	destinations, err := i.attributeStore.ListDestinationAttributes(ctx, workspaceID, destinationType)
	if err != nil {
		return err
	}

	byEmail := map[string]*models.DestinationAttribute{}
	byName := map[string]*models.DestinationAttribute{}
	for idx := range destinations {
		destination := &destinations[idx]
		if !destination.Active {
			continue
		}
		if email := destination.Detail.GetString("email"); email != "" {
			byEmail[strings.ToLower(email)] = destination
		}
		if destination.DisplayName != "" {
			byName[strings.ToLower(destination.DisplayName)] = destination
		}
	}

	offset := 0
	for {
		unmapped, err := i.attributeStore.ListUnmappedEmployeeAttributes(ctx, workspaceID, destinationType, autoMapPageSize, offset)
		if err != nil {
			return err
		}
		if len(unmapped) == 0 {
			return nil
		}

		mappedIDs := []string{}
		for _, source := range unmapped {
			destination := byEmail[strings.ToLower(source.Value)]
			if destination == nil {
				destination = byName[strings.ToLower(source.DisplayName)]
			}
			if destination == nil {
				continue
			}

			mapping := models.EmployeeMapping{
				WorkspaceID:      workspaceID,
				SourceEmployeeID: source.ID,
			}
			if destinationType == models.DestinationTypeVendor {
				mapping.DestinationVendorID = &destination.ID
			} else {
				mapping.DestinationEmployeeID = &destination.ID
			}
			if err := i.attributeStore.UpsertEmployeeMapping(ctx, mapping); err != nil {
				return err
			}
			mappedIDs = append(mappedIDs, source.ID)
		}

		if err := i.attributeStore.MarkAutoMapped(ctx, mappedIDs); err != nil {
			return err
		}

		// Newly mapped rows drop out of the unmapped listing, so only
		// advance past the ones that stayed unmapped.
		offset += len(unmapped) - len(mappedIDs)
		if len(unmapped) < autoMapPageSize {
			return nil
		}
	}
}

// resolveMappingErrors closes ledger rows whose missing mapping now exists
func (i *AttributeImporter) resolveMappingErrors(ctx context.Context, workspaceID string, errorType string) error {
	open, err := i.errorLedger.ListUnresolvedByType(ctx, workspaceID, errorType)
	if err != nil {
		return err
	}

	resolved := []string{}
	for _, row := range open {
		if row.ExpenseAttributeID == nil {
			continue
		}
		attribute, err := i.attributeStore.GetExpenseAttributeByID(ctx, *row.ExpenseAttributeID)
		if err != nil {
			return err
		}
		if attribute == nil {
			continue
		}

		mapped := false
		switch errorType {
		case models.ErrorTypeEmployeeMapping:
			mapping, err := i.attributeStore.GetEmployeeMapping(ctx, workspaceID, attribute.Value)
			if err != nil {
				return err
			}
			mapped = mapping != nil && (mapping.DestinationEmployeeID != nil || mapping.DestinationVendorID != nil)
		case models.ErrorTypeCategoryMapping:
			mapping, err := i.attributeStore.GetCategoryMapping(ctx, workspaceID, attribute.Value)
			if err != nil {
				return err
			}
			mapped = mapping != nil && mapping.DestinationAccountID != nil
		}
		if mapped {
			resolved = append(resolved, attribute.ID)
		}
	}

	return i.errorLedger.ResolveForAttributes(ctx, workspaceID, resolved)
}

func hasSourceField(settings []models.MappingSetting, sourceField string) bool {
	for _, setting := range settings {
		if setting.SourceField == sourceField {
			return true
		}
	}
	return false
}

func hasCustomSourceField(settings []models.MappingSetting) bool {
	for _, setting := range settings {
		if setting.IsCustom {
			return true
		}
	}
	return false
}
