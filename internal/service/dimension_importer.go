package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fyle-integrations/business-central-worker/internal/dynamics"
	"github.com/fyle-integrations/business-central-worker/internal/models"
)

// Per-dimension remote count ceilings. Workspaces created after the cutover
// date skip a dimension whose remote count exceeds its ceiling; older
// workspaces always sync.
var dimensionSyncCeilings = map[string]int{
	dynamics.ResourceAccounts:        2000,
	dynamics.ResourceVendors:         10000,
	dynamics.ResourceLocations:       1000,
	dynamics.ResourceBankAccounts:    2000,
	dynamics.ResourceDimensions:      1000,
	dynamics.ResourceDimensionValues: 1000,
}

var sizeGuardCutoverDate = time.Date(2024, time.September, 1, 0, 0, 0, 0, time.UTC)

// AttributeSyncStore is the write surface of the attribute store used by the
// destination sync.
type AttributeSyncStore interface {
	BulkUpsertDestinationAttributes(ctx context.Context, attributes []models.DestinationAttribute) error
	DeactivateMissingDestinationAttributes(ctx context.Context, workspaceID string, attributeType string, presentDestinationIDs []string) error
}

// DimensionImporter pulls destination attributes (accounts, vendors,
// employees, locations, bank accounts, dimensions and their values) out of
// Business Central into the attribute store.
type DimensionImporter struct {
	workspaceStore   WorkspaceStore
	attributeStore   AttributeSyncStore
	connectorFactory ConnectorFactory
}

func NewDimensionImporter(workspaceStore WorkspaceStore, attributeStore AttributeSyncStore, connectorFactory ConnectorFactory) *DimensionImporter {
	return &DimensionImporter{
		workspaceStore:   workspaceStore,
		attributeStore:   attributeStore,
		connectorFactory: connectorFactory,
	}
}

// destinationSyncTarget binds one remote listing to one attribute type. The
// dispatch table is deliberately closed; adding a dimension means adding a
// row here.
type destinationSyncTarget struct {
	resource      string
	attributeType string
}

var destinationSyncTargets = []destinationSyncTarget{
	{resource: dynamics.ResourceAccounts, attributeType: models.DestinationTypeAccount},
	{resource: dynamics.ResourceVendors, attributeType: models.DestinationTypeVendor},
	{resource: dynamics.ResourceEmployees, attributeType: models.DestinationTypeEmployeeBC},
	{resource: dynamics.ResourceLocations, attributeType: models.DestinationTypeLocation},
	{resource: dynamics.ResourceBankAccounts, attributeType: models.DestinationTypeBankAccount},
}

// SyncDimensions refreshes every destination dimension for one workspace and
// stamps destination_synced_at on success.
func (i *DimensionImporter) SyncDimensions(ctx context.Context, workspaceID string) error {
	workspace, err := i.workspaceStore.GetByID(ctx, workspaceID)
	if err != nil {
		return err
	}

	connection, err := connectBusinessCentral(ctx, i.workspaceStore, i.connectorFactory, workspace)
	if err != nil {
		return err
	}

	log := logger.WithField("workspace_id", workspaceID)

	for _, target := range destinationSyncTargets {
		skip, err := i.exceedsSizeGuard(ctx, connection, workspace, target.resource)
		if err != nil {
			return err
		}
		if skip {
			log.WithField("resource", target.resource).Info("remote dimension over size ceiling, skipping sync")
			continue
		}
		if err := i.syncResource(ctx, connection, workspace, target); err != nil {
			return fmt.Errorf("failed to sync %s: %w", target.resource, err)
		}
	}

	if err := i.syncDimensionValues(ctx, connection, workspace); err != nil {
		return err
	}

	return i.workspaceStore.UpdateDestinationSyncedAt(ctx, workspaceID, time.Now())
}

func (i *DimensionImporter) exceedsSizeGuard(ctx context.Context, connection DynamicsConnection, workspace *models.Workspace, resource string) (bool, error) {
	ceiling, guarded := dimensionSyncCeilings[resource]
	if !guarded || !workspace.CreatedAt.After(sizeGuardCutoverDate) {
		return false, nil
	}
	count, err := connection.Count(ctx, resource)
	if err != nil {
		return false, err
	}
	return count > ceiling, nil
}

func (i *DimensionImporter) syncResource(ctx context.Context, connection DynamicsConnection, workspace *models.Workspace, target destinationSyncTarget) error {
	records, err := connection.GetAll(ctx, target.resource)
	if err != nil {
		return err
	}

	attributes := make([]models.DestinationAttribute, 0, len(records))
	presentIDs := make([]string, 0, len(records))
	for _, record := range records {
		attribute, ok := toDestinationAttribute(workspace.ID, target.attributeType, record)
		if !ok {
			continue
		}
		attributes = append(attributes, attribute)
		presentIDs = append(presentIDs, attribute.DestinationID)
	}

	if len(attributes) > 0 {
		if err := i.attributeStore.BulkUpsertDestinationAttributes(ctx, attributes); err != nil {
			return err
		}
	}

	// Records absent from the current listing are deactivated. Reappearance
	// reactivates the destination row via the upsert above, but never the
	// source attributes mapped to it.
	return i.attributeStore.DeactivateMissingDestinationAttributes(ctx, workspace.ID, target.attributeType, presentIDs)
}

// syncDimensionValues lists the custom dimensions, then the values of each,
// storing values under an attribute type derived from the dimension code so
// mapping settings can target them by name.
func (i *DimensionImporter) syncDimensionValues(ctx context.Context, connection DynamicsConnection, workspace *models.Workspace) error {
	skip, err := i.exceedsSizeGuard(ctx, connection, workspace, dynamics.ResourceDimensions)
	if err != nil {
		return err
	}
	if skip {
		return nil
	}

	dimensions, err := connection.GetAll(ctx, dynamics.ResourceDimensions)
	if err != nil {
		return err
	}

	for _, dimension := range dimensions {
		dimensionID, _ := dimension["id"].(string)
		code, _ := dimension["code"].(string)
		if dimensionID == "" || code == "" {
			continue
		}

		values, err := connection.GetAll(ctx, fmt.Sprintf("dimensions(%s)/dimensionValues", dimensionID))
		if err != nil {
			return err
		}

		attributeType := dimensionAttributeType(code)
		attributes := make([]models.DestinationAttribute, 0, len(values))
		presentIDs := make([]string, 0, len(values))
		for _, value := range values {
			valueID, _ := value["id"].(string)
			valueCode, _ := value["code"].(string)
			if valueID == "" {
				continue
			}
			displayName, _ := value["displayName"].(string)
			if displayName == "" {
				displayName = valueCode
			}
			attributes = append(attributes, models.DestinationAttribute{
				WorkspaceID:   workspace.ID,
				AttributeType: attributeType,
				DisplayName:   code,
				Value:         valueCode,
				DestinationID: valueID,
				Active:        true,
				Detail: models.JSONB{
					"dimension_id": dimensionID,
					"display_name": displayName,
				},
			})
			presentIDs = append(presentIDs, valueID)
		}

		if len(attributes) > 0 {
			if err := i.attributeStore.BulkUpsertDestinationAttributes(ctx, attributes); err != nil {
				return err
			}
		}
		if err := i.attributeStore.DeactivateMissingDestinationAttributes(ctx, workspace.ID, attributeType, presentIDs); err != nil {
			return err
		}
	}

	return nil
}

func toDestinationAttribute(workspaceID string, attributeType string, record map[string]interface{}) (models.DestinationAttribute, bool) {
	destinationID, _ := record["id"].(string)
	if destinationID == "" {
		return models.DestinationAttribute{}, false
	}

	displayName, _ := record["displayName"].(string)
	number, _ := record["number"].(string)

	// Accounts and vendors post by number; display names are for lookups
	value := displayName
	destinationValue := destinationID
	if number != "" {
		destinationValue = number
	}

	detail := models.JSONB{}
	if number != "" {
		detail["number"] = number
	}
	if email, ok := record["email"].(string); ok && email != "" {
		detail["email"] = email
	}

	attribute := models.DestinationAttribute{
		WorkspaceID:   workspaceID,
		AttributeType: attributeType,
		DisplayName:   displayName,
		Value:         value,
		DestinationID: destinationValue,
		Active:        true,
	}
	if len(detail) > 0 {
		attribute.Detail = detail
	}
	return attribute, true
}

func dimensionAttributeType(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), " ", "_"))
}
