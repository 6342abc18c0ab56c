package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyle-integrations/business-central-worker/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MappingRepository is the attribute-store access layer: source/destination
// attribute values and the mapping pair tables between them.
type MappingRepository struct {
	db *gorm.DB
}

func NewMappingRepository(db *gorm.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction
func (r *MappingRepository) WithTx(tx *gorm.DB) *MappingRepository {
	return &MappingRepository{db: tx}
}

// GetExpenseAttribute looks up one source attribute by type and exact value
func (r *MappingRepository) GetExpenseAttribute(ctx context.Context, workspaceID string, attributeType string, value string) (*models.ExpenseAttribute, error) {
	var attribute models.ExpenseAttribute
	result := r.db.WithContext(ctx).
		Where("workspace_id = ? AND attribute_type = ? AND value = ?", workspaceID, attributeType, value).
		First(&attribute)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense attribute: %w", result.Error)
	}
	return &attribute, nil
}

// GetExpenseAttributeByID fetches one source attribute row
func (r *MappingRepository) GetExpenseAttributeByID(ctx context.Context, attributeID string) (*models.ExpenseAttribute, error) {
	var attribute models.ExpenseAttribute
	result := r.db.WithContext(ctx).First(&attribute, "id = ?", attributeID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense attribute: %w", result.Error)
	}
	return &attribute, nil
}

// GetExpenseAttributeByDisplayName looks up one source attribute by its
// display name, used for custom-field dimension sources
func (r *MappingRepository) GetExpenseAttributeByDisplayName(ctx context.Context, workspaceID string, displayName string, value string) (*models.ExpenseAttribute, error) {
	var attribute models.ExpenseAttribute
	result := r.db.WithContext(ctx).
		Where("workspace_id = ? AND display_name = ? AND value = ?", workspaceID, displayName, value).
		First(&attribute)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense attribute by display name: %w", result.Error)
	}
	return &attribute, nil
}

// GetDestinationAttributeByValue resolves a destination attribute by
// case-insensitive value match (merchant → vendor lookups)
func (r *MappingRepository) GetDestinationAttributeByValue(ctx context.Context, workspaceID string, attributeType string, value string) (*models.DestinationAttribute, error) {
	var attribute models.DestinationAttribute
	result := r.db.WithContext(ctx).
		Where("workspace_id = ? AND attribute_type = ? AND LOWER(value) = ?", workspaceID, attributeType, strings.ToLower(value)).
		First(&attribute)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get destination attribute: %w", result.Error)
	}
	return &attribute, nil
}

// GetMapping resolves the generic mapping for a source value, scoped by
// (source_type, destination_type, workspace). Absence returns nil, not an
// error; missing mappings are surfaced by the validation gate.
func (r *MappingRepository) GetMapping(ctx context.Context, workspaceID string, sourceType string, destinationType string, sourceValue string) (*models.Mapping, error) {
	var mapping models.Mapping
	result := r.db.WithContext(ctx).
		Joins("JOIN expense_attributes ON expense_attributes.id = mappings.source_id").
		Where("mappings.workspace_id = ? AND mappings.source_type = ? AND mappings.destination_type = ? AND expense_attributes.value = ?",
			workspaceID, sourceType, destinationType, sourceValue).
		Preload("Destination").
		First(&mapping)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get mapping: %w", result.Error)
	}
	return &mapping, nil
}

// GetEmployeeMapping resolves the employee pair row for a source employee email
func (r *MappingRepository) GetEmployeeMapping(ctx context.Context, workspaceID string, employeeEmail string) (*models.EmployeeMapping, error) {
	var mapping models.EmployeeMapping
	result := r.db.WithContext(ctx).
		Joins("JOIN expense_attributes ON expense_attributes.id = employee_mappings.source_employee_id").
		Where("employee_mappings.workspace_id = ? AND expense_attributes.value = ?", workspaceID, employeeEmail).
		Preload("SourceEmployee").
		Preload("DestinationEmployee").
		Preload("DestinationVendor").
		First(&mapping)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get employee mapping: %w", result.Error)
	}
	return &mapping, nil
}

// GetCategoryMapping resolves the category pair row for an effective category value
func (r *MappingRepository) GetCategoryMapping(ctx context.Context, workspaceID string, category string) (*models.CategoryMapping, error) {
	var mapping models.CategoryMapping
	result := r.db.WithContext(ctx).
		Joins("JOIN expense_attributes ON expense_attributes.id = category_mappings.source_category_id").
		Where("category_mappings.workspace_id = ? AND expense_attributes.value = ?", workspaceID, category).
		Preload("SourceCategory").
		Preload("DestinationAccount").
		First(&mapping)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category mapping: %w", result.Error)
	}
	return &mapping, nil
}

// ListMappingSettings returns the configured dimension pairings for a workspace
func (r *MappingRepository) ListMappingSettings(ctx context.Context, workspaceID string) ([]models.MappingSetting, error) {
	var settings []models.MappingSetting
	result := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceID).
		Order("source_field ASC").
		Find(&settings)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list mapping settings: %w", result.Error)
	}
	return settings, nil
}

// GetMappingSettingByDestination returns the pairing targeting one destination field
func (r *MappingRepository) GetMappingSettingByDestination(ctx context.Context, workspaceID string, destinationField string) (*models.MappingSetting, error) {
	var setting models.MappingSetting
	result := r.db.WithContext(ctx).
		Where("workspace_id = ? AND destination_field = ?", workspaceID, destinationField).
		First(&setting)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get mapping setting: %w", result.Error)
	}
	return &setting, nil
}

// BulkUpsertDestinationAttributes writes destination attributes keyed by
// (workspace, attribute_type, destination_id)
func (r *MappingRepository) BulkUpsertDestinationAttributes(ctx context.Context, attributes []models.DestinationAttribute) error {
	if len(attributes) == 0 {
		return nil
	}
	for i := range attributes {
		if attributes[i].ID == "" {
			attributes[i].ID = uuid.New().String()
		}
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "attribute_type"}, {Name: "destination_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "display_name", "active", "detail", "updated_at"}),
	}).Create(&attributes)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert destination attributes: %w", result.Error)
	}
	return nil
}

// BulkUpsertExpenseAttributes writes source attributes keyed by
// (workspace, attribute_type, value)
func (r *MappingRepository) BulkUpsertExpenseAttributes(ctx context.Context, attributes []models.ExpenseAttribute) error {
	if len(attributes) == 0 {
		return nil
	}
	for i := range attributes {
		if attributes[i].ID == "" {
			attributes[i].ID = uuid.New().String()
		}
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "attribute_type"}, {Name: "value"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "source_id", "detail", "updated_at"}),
	}).Create(&attributes)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert expense attributes: %w", result.Error)
	}
	return nil
}

// ListDestinationAttributes returns destination attributes of one type
func (r *MappingRepository) ListDestinationAttributes(ctx context.Context, workspaceID string, attributeType string) ([]models.DestinationAttribute, error) {
	var attributes []models.DestinationAttribute
	result := r.db.WithContext(ctx).
		Where("workspace_id = ? AND attribute_type = ?", workspaceID, attributeType).
		Find(&attributes)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list destination attributes: %w", result.Error)
	}
	return attributes, nil
}

// ListUnmappedEmployeeAttributes pages through source employees that have no
// resolved destination for the given mapping preference
func (r *MappingRepository) ListUnmappedEmployeeAttributes(ctx context.Context, workspaceID string, destinationType string, limit int, offset int) ([]models.ExpenseAttribute, error) {
	destinationColumn := "destination_employee_id"
	if destinationType == models.DestinationTypeVendor {
		destinationColumn = "destination_vendor_id"
	}

	var attributes []models.ExpenseAttribute
	result := r.db.WithContext(ctx).
		Joins("LEFT JOIN employee_mappings ON employee_mappings.source_employee_id = expense_attributes.id").
		Where("expense_attributes.workspace_id = ? AND expense_attributes.attribute_type = ?", workspaceID, models.AttributeTypeEmployee).
		Where("employee_mappings.id IS NULL OR employee_mappings." + destinationColumn + " IS NULL").
		Order("expense_attributes.value ASC").
		Limit(limit).
		Offset(offset).
		Find(&attributes)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list unmapped employees: %w", result.Error)
	}
	return attributes, nil
}

// UpsertEmployeeMapping writes the employee pair row keyed by the source employee
func (r *MappingRepository) UpsertEmployeeMapping(ctx context.Context, mapping models.EmployeeMapping) error {
	if mapping.ID == "" {
		mapping.ID = uuid.New().String()
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source_employee_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"destination_employee_id", "destination_vendor_id", "updated_at"}),
	}).Create(&mapping)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert employee mapping: %w", result.Error)
	}
	return nil
}

// UpsertGenericMapping writes a mapping row keyed by
// (workspace, source_type, destination_type, source attribute)
func (r *MappingRepository) UpsertGenericMapping(ctx context.Context, mapping models.Mapping) error {
	if mapping.ID == "" {
		mapping.ID = uuid.New().String()
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "workspace_id"}, {Name: "source_type"}, {Name: "destination_type"}, {Name: "source_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"destination_id", "updated_at"}),
	}).Create(&mapping)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert mapping: %w", result.Error)
	}
	return nil
}

// MarkAutoMapped flags source attributes whose mapping was auto-created
func (r *MappingRepository) MarkAutoMapped(ctx context.Context, attributeIDs []string) error {
	if len(attributeIDs) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Model(&models.ExpenseAttribute{}).
		Where("id IN ?", attributeIDs).
		Updates(map[string]interface{}{"auto_mapped": true, "updated_at": time.Now()})
	if result.Error != nil {
		return fmt.Errorf("failed to mark attributes auto mapped: %w", result.Error)
	}
	return nil
}

// DeactivateMissingDestinationAttributes disables destination attributes of a
// type that no longer appear in the external listing, and cascades the
// deactivation to source attributes mapped to them. Reappearance does NOT
// reactivate a deactivated source attribute; re-enable is manual.
func (r *MappingRepository) DeactivateMissingDestinationAttributes(ctx context.Context, workspaceID string, attributeType string, presentDestinationIDs []string) error {
	query := r.db.WithContext(ctx).Model(&models.DestinationAttribute{}).
		Where("workspace_id = ? AND attribute_type = ? AND active = ?", workspaceID, attributeType, true)
	if len(presentDestinationIDs) > 0 {
		query = query.Where("destination_id NOT IN ?", presentDestinationIDs)
	}

	var disappeared []models.DestinationAttribute
	if err := query.Find(&disappeared).Error; err != nil {
		return fmt.Errorf("failed to find disappeared destination attributes: %w", err)
	}
	if len(disappeared) == 0 {
		return nil
	}

	destinationIDs := make([]string, 0, len(disappeared))
	for _, attribute := range disappeared {
		destinationIDs = append(destinationIDs, attribute.ID)
	}

	updateErr := r.db.WithContext(ctx).Model(&models.DestinationAttribute{}).
		Where("id IN ?", destinationIDs).
		Updates(map[string]interface{}{"active": false, "updated_at": time.Now()})
	if updateErr.Error != nil {
		return fmt.Errorf("failed to deactivate destination attributes: %w", updateErr.Error)
	}

	cascadeErr := r.db.WithContext(ctx).Exec(`
		UPDATE expense_attributes SET active = false, updated_at = ?
		WHERE id IN (
			SELECT source_id FROM mappings
			WHERE workspace_id = ? AND destination_id IN ?
		)`, time.Now(), workspaceID, destinationIDs)
	if cascadeErr.Error != nil {
		return fmt.Errorf("failed to cascade deactivation: %w", cascadeErr.Error)
	}
	return nil
}
