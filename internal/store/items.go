package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/safar/inventory-store/internal/database"
	"github.com/safar/inventory-store/internal/models"
)

const itemColumns = `id, name, description, part_number, serial_number, quantity_per_unit,
	unit_name, user_attributes, created_at, updated_at, lamport_clock, deleted`

// CreateItem inserts item under a fresh id with clock 0 and returns the
// stored row. Caller-supplied ID, timestamps and clock are ignored.
func CreateItem(ctx context.Context, q sqlx.QueryerContext, item *models.InventoryItem) (*models.InventoryItem, error) {
	created := &models.InventoryItem{}

	query := `
		INSERT INTO inventory_items (id, name, description, part_number, serial_number,
			quantity_per_unit, unit_name, user_attributes, created_at, updated_at, lamport_clock, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW(), 0, $9)
		RETURNING ` + itemColumns

	err := sqlx.GetContext(ctx, q, created, query,
		uuid.New(),
		item.Name,
		item.Description,
		item.PartNumber,
		item.SerialNumber,
		item.QuantityPerUnit,
		item.UnitName,
		item.UserAttributes,
		item.Deleted,
	)
	if err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	return created, nil
}

// GetItem returns nil, nil when no item has the given id. Soft-deleted items
// are returned.
func GetItem(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*models.InventoryItem, error) {
	item := &models.InventoryItem{}

	err := sqlx.GetContext(ctx, q, item,
		`SELECT `+itemColumns+` FROM inventory_items WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get item: %w", err)
	}

	return item, nil
}

// ListItems returns one page of items that are not soft-deleted. A page past
// the end yields an empty slice.
func ListItems(ctx context.Context, q sqlx.QueryerContext, req PageRequest) ([]models.InventoryItem, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}

	// orderClause only ever contains allow-listed identifiers.
	query := `
		SELECT ` + itemColumns + `
		FROM inventory_items
		WHERE deleted = FALSE
		ORDER BY ` + req.orderClause() + `
		LIMIT $1 OFFSET $2`

	items := []models.InventoryItem{}
	if err := sqlx.SelectContext(ctx, q, &items, query, req.PageSize, req.Offset()); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	return items, nil
}

func CountItems(ctx context.Context, q sqlx.QueryerContext) (int64, error) {
	var total int64
	err := sqlx.GetContext(ctx, q, &total, `SELECT COUNT(*) FROM inventory_items WHERE deleted = FALSE`)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return total, nil
}

// UpdateItem overwrites the mutable fields of item and stores proposedClock,
// but only if proposedClock is greater than the stored clock. The guard is
// part of the UPDATE itself. When nothing matched, a second read tells a
// missing item (database.ErrItemNotFound) from a stale clock
// (*database.ConflictError).
func UpdateItem(ctx context.Context, q sqlx.QueryerContext, item *models.InventoryItem, proposedClock int64) (*models.InventoryItem, error) {
	updated := &models.InventoryItem{}

	query := `
		UPDATE inventory_items
		SET name = $2,
		    description = $3,
		    part_number = $4,
		    serial_number = $5,
		    quantity_per_unit = $6,
		    unit_name = $7,
		    user_attributes = $8,
		    deleted = $9,
		    lamport_clock = $10,
		    updated_at = clock_timestamp()
		WHERE id = $1
		  AND lamport_clock < $10
		RETURNING ` + itemColumns

	err := sqlx.GetContext(ctx, q, updated, query,
		item.ID,
		item.Name,
		item.Description,
		item.PartNumber,
		item.SerialNumber,
		item.QuantityPerUnit,
		item.UnitName,
		item.UserAttributes,
		item.Deleted,
		proposedClock,
	)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update item: %w", err)
	}

	var current int64
	err = sqlx.GetContext(ctx, q, &current,
		`SELECT lamport_clock FROM inventory_items WHERE id = $1`, item.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrItemNotFound
		}
		return nil, fmt.Errorf("read item clock: %w", err)
	}

	if AcceptClock(current, proposedClock) {
		// The guard failed yet the stored clock would accept: the row changed
		// between the two statements, which a monotonic clock cannot do.
		return nil, fmt.Errorf("update item %s: clock guard rejected %d but stored clock is %d",
			item.ID, proposedClock, current)
	}

	return nil, &database.ConflictError{
		ItemID:    item.ID,
		Attempted: proposedClock,
		Current:   current,
	}
}

// TotalUnitCount is the number of units still in inventory multiplied by the
// item's quantity per unit.
func TotalUnitCount(ctx context.Context, q sqlx.QueryerContext, itemID uuid.UUID) (int64, error) {
	var total int64

	err := sqlx.GetContext(ctx, q, &total, `
		SELECT (
			SELECT COUNT(*) FROM item_units
			WHERE inventory_item_id = $1 AND removed = FALSE
		) * quantity_per_unit
		FROM inventory_items
		WHERE id = $1`, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, database.ErrItemNotFound
		}
		return 0, fmt.Errorf("total unit count: %w", err)
	}

	return total, nil
}
