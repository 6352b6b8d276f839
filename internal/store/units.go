package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/safar/inventory-store/internal/database"
	"github.com/safar/inventory-store/internal/models"
)

const unitColumns = `id, inventory_item_id, recorded_in_inventory, removed_from_inventory, removed`

// AddUnit records a new physical unit of an item. An unknown item yields
// database.ErrItemNotFound.
func AddUnit(ctx context.Context, db *sqlx.DB, itemID uuid.UUID) (*models.ItemUnit, error) {
	unit := &models.ItemUnit{}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, unit, `
			INSERT INTO item_units (id, inventory_item_id, recorded_in_inventory, removed)
			VALUES ($1, $2, NOW(), FALSE)
			RETURNING `+unitColumns,
			uuid.New(), itemID)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return database.ErrItemNotFound
			}
			return fmt.Errorf("add unit: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return unit, nil
}

// RemoveUnit marks a unit as removed from inventory. It returns false when no
// unit in inventory matched, which includes units removed earlier.
func RemoveUnit(ctx context.Context, db *sqlx.DB, unitID uuid.UUID) (bool, error) {
	removed := false

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE item_units
			SET removed_from_inventory = NOW(),
			    removed = TRUE
			WHERE id = $1
			  AND removed = FALSE`,
			unitID)
		if err != nil {
			return fmt.Errorf("remove unit: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}

		removed = rowsAffected > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	return removed, nil
}

// ListUnits returns all units of an item, oldest first.
func ListUnits(ctx context.Context, q sqlx.QueryerContext, itemID uuid.UUID) ([]models.ItemUnit, error) {
	units := []models.ItemUnit{}

	err := sqlx.SelectContext(ctx, q, &units, `
		SELECT `+unitColumns+`
		FROM item_units
		WHERE inventory_item_id = $1
		ORDER BY recorded_in_inventory, id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}

	return units, nil
}
