// Package inventory is the entry point the HTTP layer uses to read and write
// inventory items, their units and their properties.
package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/safar/inventory-store/internal/database"
	"github.com/safar/inventory-store/internal/metrics"
	"github.com/safar/inventory-store/internal/models"
	"github.com/safar/inventory-store/internal/store"
	"go.uber.org/zap"
)

// Repository validates requests, delegates to the store functions and maps
// every failure onto the database error taxonomy: *ValidationError,
// ErrItemNotFound, *ConflictError or *StorageError.
type Repository struct {
	db       *sqlx.DB
	logger   *zap.Logger
	validate *validator.Validate
}

func NewRepository(db *sqlx.DB, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{
		db:       db,
		logger:   logger.Named("inventory"),
		validate: newValidator(),
	}
}

// CreateItem stores a new item with clock 0.
func (r *Repository) CreateItem(ctx context.Context, item *models.InventoryItem) (*models.InventoryItem, error) {
	const op = "create_item"
	started := time.Now()

	if err := r.validateItem(item); err != nil {
		return nil, r.finish(op, started, err)
	}

	created, err := store.CreateItem(ctx, r.db, item)
	if err != nil {
		return nil, r.finish(op, started, err)
	}

	r.finish(op, started, nil, zap.Stringer("item_id", created.ID))
	return created, nil
}

// CreateItemWithProperties stores an item and its properties atomically.
func (r *Repository) CreateItemWithProperties(ctx context.Context, item *models.InventoryItem, props []models.InventoryItemProperty) (*models.InventoryItem, []models.InventoryItemProperty, error) {
	const op = "create_item_with_properties"
	started := time.Now()

	if err := r.validateItem(item); err != nil {
		return nil, nil, r.finish(op, started, err)
	}
	if err := r.validateProperties(props); err != nil {
		return nil, nil, r.finish(op, started, err)
	}

	created, createdProps, err := store.CreateItemWithProperties(ctx, r.db, item, props)
	if err != nil {
		return nil, nil, r.finish(op, started, err)
	}

	r.finish(op, started, nil, zap.Stringer("item_id", created.ID), zap.Int("properties", len(createdProps)))
	return created, createdProps, nil
}

// GetItem returns nil, nil when the item does not exist.
func (r *Repository) GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	const op = "get_item"
	started := time.Now()

	item, err := store.GetItem(ctx, r.db, id)
	if err != nil {
		return nil, r.finish(op, started, err)
	}
	if item == nil {
		r.finish(op, started, database.ErrItemNotFound, zap.Stringer("item_id", id))
		return nil, nil
	}

	r.finish(op, started, nil)
	return item, nil
}

func (r *Repository) ListItems(ctx context.Context, req store.PageRequest) ([]models.InventoryItem, error) {
	const op = "list_items"
	started := time.Now()

	items, err := store.ListItems(ctx, r.db, req)
	if err != nil {
		return nil, r.finish(op, started, err)
	}

	r.finish(op, started, nil)
	return items, nil
}

// ListItemsPage is ListItems plus the total number of listed items.
func (r *Repository) ListItemsPage(ctx context.Context, req store.PageRequest) (*store.OffsetPage, error) {
	const op = "list_items_page"
	started := time.Now()

	req, err := req.Normalize()
	if err != nil {
		return nil, r.finish(op, started, err)
	}

	items, err := store.ListItems(ctx, r.db, req)
	if err != nil {
		return nil, r.finish(op, started, err)
	}

	total, err := store.CountItems(ctx, r.db)
	if err != nil {
		return nil, r.finish(op, started, err)
	}

	r.finish(op, started, nil)
	return store.NewOffsetPage(items, total, req), nil
}

// UpdateItem replaces the item's mutable fields if proposedClock is greater
// than the stored clock.
func (r *Repository) UpdateItem(ctx context.Context, item *models.InventoryItem, proposedClock int64) (*models.InventoryItem, error) {
	const op = "update_item"
	started := time.Now()

	if err := r.validateExistingItem(item); err != nil {
		return nil, r.finish(op, started, err)
	}

	var updated *models.InventoryItem
	err := database.WithTransaction(ctx, r.db, database.DefaultTxOptions(), func(tx *sqlx.Tx) error {
		var err error
		updated, err = store.UpdateItem(ctx, tx, item, proposedClock)
		return err
	})
	if err != nil {
		return nil, r.finish(op, started, err, zap.Stringer("item_id", item.ID))
	}

	r.finish(op, started, nil, zap.Stringer("item_id", item.ID), zap.Int64("lamport_clock", updated.LamportClock))
	return updated, nil
}

// UpdateItemWithProperties is UpdateItem plus a property replacement in the
// same transaction. Names in retire and the names of props lose their active
// rows, then props are inserted.
func (r *Repository) UpdateItemWithProperties(ctx context.Context, item *models.InventoryItem, proposedClock int64, retire []string, props []models.InventoryItemProperty) (*models.InventoryItem, []models.InventoryItemProperty, error) {
	const op = "update_item_with_properties"
	started := time.Now()

	if err := r.validateExistingItem(item); err != nil {
		return nil, nil, r.finish(op, started, err)
	}
	if err := validateRetireNames(retire); err != nil {
		return nil, nil, r.finish(op, started, err)
	}
	if err := r.validateProperties(props); err != nil {
		return nil, nil, r.finish(op, started, err)
	}

	updated, added, err := store.UpdateItemWithProperties(ctx, r.db, item, proposedClock, store.PropertyChange{
		Retire: retire,
		Add:    props,
	})
	if err != nil {
		return nil, nil, r.finish(op, started, err, zap.Stringer("item_id", item.ID))
	}

	r.finish(op, started, nil, zap.Stringer("item_id", item.ID), zap.Int64("lamport_clock", updated.LamportClock))
	return updated, added, nil
}

func (r *Repository) ListProperties(ctx context.Context, itemID uuid.UUID) ([]models.InventoryItemProperty, error) {
	const op = "list_properties"
	started := time.Now()

	props, err := store.ListProperties(ctx, r.db, itemID)
	if err != nil {
		return nil, r.finish(op, started, err)
	}

	r.finish(op, started, nil)
	return props, nil
}

func (r *Repository) ListUnits(ctx context.Context, itemID uuid.UUID) ([]models.ItemUnit, error) {
	const op = "list_units"
	started := time.Now()

	units, err := store.ListUnits(ctx, r.db, itemID)
	if err != nil {
		return nil, r.finish(op, started, err)
	}

	r.finish(op, started, nil)
	return units, nil
}

// AddUnit records one more physical unit of an item.
func (r *Repository) AddUnit(ctx context.Context, itemID uuid.UUID) (*models.ItemUnit, error) {
	const op = "add_unit"
	started := time.Now()

	unit, err := store.AddUnit(ctx, r.db, itemID)
	if err != nil {
		return nil, r.finish(op, started, err, zap.Stringer("item_id", itemID))
	}

	r.finish(op, started, nil, zap.Stringer("item_id", itemID), zap.Stringer("unit_id", unit.ID))
	return unit, nil
}

// RemoveUnit returns false, nil when the unit does not exist or was
// already removed.
func (r *Repository) RemoveUnit(ctx context.Context, unitID uuid.UUID) (bool, error) {
	const op = "remove_unit"
	started := time.Now()

	removed, err := store.RemoveUnit(ctx, r.db, unitID)
	if err != nil {
		return false, r.finish(op, started, err, zap.Stringer("unit_id", unitID))
	}
	if !removed {
		r.finish(op, started, database.ErrUnitNotFound, zap.Stringer("unit_id", unitID))
		return false, nil
	}

	r.finish(op, started, nil, zap.Stringer("unit_id", unitID))
	return true, nil
}

func (r *Repository) TotalUnitCount(ctx context.Context, itemID uuid.UUID) (int64, error) {
	const op = "total_unit_count"
	started := time.Now()

	total, err := store.TotalUnitCount(ctx, r.db, itemID)
	if err != nil {
		return 0, r.finish(op, started, err, zap.Stringer("item_id", itemID))
	}

	r.finish(op, started, nil)
	return total, nil
}

// finish records metrics and logs for one operation and converts err into
// the error returned to callers.
func (r *Repository) finish(op string, started time.Time, err error, fields ...zap.Field) error {
	fields = append(fields, zap.String("op", op))

	var (
		conflict   *database.ConflictError
		validation *database.ValidationError
	)

	switch {
	case err == nil:
		metrics.ObserveOperation(op, metrics.ResultOK, started)
		r.logger.Debug("operation completed", fields...)
		return nil

	case errors.As(err, &validation):
		metrics.ObserveOperation(op, metrics.ResultInvalid, started)
		r.logger.Debug("rejected invalid request", append(fields, zap.Error(err))...)
		return err

	case errors.As(err, &conflict):
		metrics.ObserveOperation(op, metrics.ResultConflict, started)
		r.logger.Info("lamport clock conflict", append(fields,
			zap.Int64("attempted_clock", conflict.Attempted),
			zap.Int64("current_clock", conflict.Current))...)
		return conflict

	case errors.Is(err, database.ErrItemNotFound), errors.Is(err, database.ErrUnitNotFound):
		metrics.ObserveOperation(op, metrics.ResultNotFound, started)
		r.logger.Debug("not found", fields...)
		return err

	default:
		storageErr := &database.StorageError{Op: op, Err: err}
		metrics.ObserveOperation(op, metrics.ResultError, started)
		r.logger.Error("storage failure", append(fields,
			zap.Error(err),
			zap.Bool("transient", storageErr.Transient()))...)
		return storageErr
	}
}
