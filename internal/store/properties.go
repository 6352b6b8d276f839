package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/safar/inventory-store/internal/database"
	"github.com/safar/inventory-store/internal/models"
)

const propertyColumns = `id, inventory_item_id, property_name, property_value, deleted`

// CreateItemWithProperties inserts an item and its properties in one
// transaction. If any property insert fails the item is rolled back too.
func CreateItemWithProperties(ctx context.Context, db *sqlx.DB, item *models.InventoryItem, props []models.InventoryItemProperty) (*models.InventoryItem, []models.InventoryItemProperty, error) {
	var created *models.InventoryItem
	var createdProps []models.InventoryItemProperty

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sqlx.Tx) error {
		var err error
		created, err = CreateItem(ctx, tx, item)
		if err != nil {
			return err
		}

		createdProps, err = insertProperties(ctx, tx, created.ID, props)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return created, createdProps, nil
}

// PropertyChange describes the property side of UpdateItemWithProperties.
// Every name in Retire and every name in Add loses its active row before
// the rows in Add are inserted, so Add alone replaces values.
type PropertyChange struct {
	Retire []string
	Add    []models.InventoryItemProperty
}

func (c PropertyChange) retireNames() []string {
	seen := make(map[string]struct{}, len(c.Retire)+len(c.Add))
	names := make([]string, 0, len(c.Retire)+len(c.Add))
	for _, name := range c.Retire {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	for _, p := range c.Add {
		if _, ok := seen[p.PropertyName]; !ok {
			seen[p.PropertyName] = struct{}{}
			names = append(names, p.PropertyName)
		}
	}
	return names
}

// UpdateItemWithProperties applies the clock-guarded item update, retires
// properties and inserts new ones, all in one transaction. A rejected clock
// rolls back before any property is touched.
func UpdateItemWithProperties(ctx context.Context, db *sqlx.DB, item *models.InventoryItem, proposedClock int64, change PropertyChange) (*models.InventoryItem, []models.InventoryItemProperty, error) {
	var updated *models.InventoryItem
	var added []models.InventoryItemProperty

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sqlx.Tx) error {
		var err error
		updated, err = UpdateItem(ctx, tx, item, proposedClock)
		if err != nil {
			return err
		}

		if _, err := retireProperties(ctx, tx, item.ID, change.retireNames()); err != nil {
			return err
		}

		added, err = insertProperties(ctx, tx, item.ID, change.Add)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return updated, added, nil
}

// ListProperties returns the active properties of an item ordered by name.
func ListProperties(ctx context.Context, q sqlx.QueryerContext, itemID uuid.UUID) ([]models.InventoryItemProperty, error) {
	props := []models.InventoryItemProperty{}

	err := sqlx.SelectContext(ctx, q, &props, `
		SELECT `+propertyColumns+`
		FROM item_properties
		WHERE inventory_item_id = $1 AND deleted = FALSE
		ORDER BY property_name`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list properties: %w", err)
	}

	return props, nil
}

// ListPropertyHistory returns every property row of an item, retired ones
// included.
func ListPropertyHistory(ctx context.Context, q sqlx.QueryerContext, itemID uuid.UUID) ([]models.InventoryItemProperty, error) {
	props := []models.InventoryItemProperty{}

	err := sqlx.SelectContext(ctx, q, &props, `
		SELECT `+propertyColumns+`
		FROM item_properties
		WHERE inventory_item_id = $1
		ORDER BY property_name, deleted DESC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list property history: %w", err)
	}

	return props, nil
}

func insertProperties(ctx context.Context, q sqlx.QueryerContext, itemID uuid.UUID, props []models.InventoryItemProperty) ([]models.InventoryItemProperty, error) {
	inserted := make([]models.InventoryItemProperty, 0, len(props))

	for _, p := range props {
		var row models.InventoryItemProperty
		err := sqlx.GetContext(ctx, q, &row, `
			INSERT INTO item_properties (id, inventory_item_id, property_name, property_value, deleted)
			VALUES ($1, $2, $3, $4, FALSE)
			RETURNING `+propertyColumns,
			uuid.New(), itemID, p.PropertyName, p.PropertyValue)
		if err != nil {
			return nil, fmt.Errorf("insert property %q: %w", p.PropertyName, err)
		}
		inserted = append(inserted, row)
	}

	return inserted, nil
}

func retireProperties(ctx context.Context, q sqlx.ExecerContext, itemID uuid.UUID, names []string) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}

	result, err := q.ExecContext(ctx, `
		UPDATE item_properties
		SET deleted = TRUE
		WHERE inventory_item_id = $1
		  AND property_name = ANY($2)
		  AND deleted = FALSE`,
		itemID, pq.Array(names))
	if err != nil {
		return 0, fmt.Errorf("retire properties: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}

	return rowsAffected, nil
}
