package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/safar/inventory-store/internal/database"
	"github.com/safar/inventory-store/internal/models"
	"github.com/safar/inventory-store/internal/store"
	"github.com/safar/inventory-store/internal/testutil"
)

func TestOptimisticLocking(t *testing.T) {
	db := testutil.NewInventoryDB(t)
	ctx := context.Background()

	item, err := store.CreateItem(ctx, db, &models.InventoryItem{Name: "Hex bolt", QuantityPerUnit: 10})
	if err != nil {
		t.Fatalf("Create item: %v", err)
	}
	if item.LamportClock != 0 {
		t.Fatalf("Expected clock 0 on create, got %d", item.LamportClock)
	}

	item.Name = "Hex bolt M8"
	updated, err := store.UpdateItem(ctx, db, item, 3)
	if err != nil {
		t.Fatalf("Update item: %v", err)
	}
	if updated.LamportClock != 3 || updated.Name != "Hex bolt M8" {
		t.Errorf("Unexpected row after update: clock %d name %q", updated.LamportClock, updated.Name)
	}

	item.Name = "stale"
	_, err = store.UpdateItem(ctx, db, item, 2)
	var conflict *database.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("Expected conflict, got %v", err)
	}
	if conflict.Attempted != 2 || conflict.Current != 3 {
		t.Errorf("Expected attempted 2 current 3, got %d and %d", conflict.Attempted, conflict.Current)
	}

	stored, err := store.GetItem(ctx, db, item.ID)
	if err != nil {
		t.Fatalf("Get item: %v", err)
	}
	if stored.Name != "Hex bolt M8" {
		t.Errorf("Stale update leaked: name is %q", stored.Name)
	}

	_, err = store.UpdateItem(ctx, db, &models.InventoryItem{ID: uuid.New(), Name: "ghost"}, 1)
	if !errors.Is(err, database.ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound, got %v", err)
	}
}

func TestUpdatedAtIsTimeOfMutation(t *testing.T) {
	db := testutil.NewInventoryDB(t)
	ctx := context.Background()

	item, err := store.CreateItem(ctx, db, &models.InventoryItem{Name: "Nut"})
	if err != nil {
		t.Fatalf("Create item: %v", err)
	}

	var first, second *models.InventoryItem
	err = database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sqlx.Tx) error {
		var err error
		if first, err = store.UpdateItem(ctx, tx, item, 1); err != nil {
			return err
		}
		second, err = store.UpdateItem(ctx, tx, first, 2)
		return err
	})
	if err != nil {
		t.Fatalf("Update item twice: %v", err)
	}

	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("Expected updated_at to advance within one transaction: first %v second %v",
			first.UpdatedAt, second.UpdatedAt)
	}
	if !first.UpdatedAt.After(item.CreatedAt) {
		t.Errorf("Expected updated_at %v after created_at %v", first.UpdatedAt, item.CreatedAt)
	}
}

func TestConcurrentClockUpdates(t *testing.T) {
	db := testutil.NewInventoryDB(t)
	ctx := context.Background()

	item, err := store.CreateItem(ctx, db, &models.InventoryItem{Name: "Washer"})
	if err != nil {
		t.Fatalf("Create item: %v", err)
	}

	concurrency := 5
	var wg sync.WaitGroup
	errs := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sqlx.Tx) error {
				_, err := store.UpdateItem(ctx, tx, item, 1)
				return err
			})
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	successCount := 0
	for err := range errs {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, database.ErrConcurrencyConflict):
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}

	if successCount != 1 {
		t.Errorf("Expected exactly one update to win clock 1, got %d", successCount)
	}
}

func TestUnitsAndTotalCount(t *testing.T) {
	db := testutil.NewInventoryDB(t)
	ctx := context.Background()

	item, err := store.CreateItem(ctx, db, &models.InventoryItem{Name: "Cable", QuantityPerUnit: 25, UnitName: "spool"})
	if err != nil {
		t.Fatalf("Create item: %v", err)
	}

	var units []*models.ItemUnit
	for i := 0; i < 2; i++ {
		unit, err := store.AddUnit(ctx, db, item.ID)
		if err != nil {
			t.Fatalf("Add unit: %v", err)
		}
		units = append(units, unit)
	}

	removed, err := store.RemoveUnit(ctx, db, units[0].ID)
	if err != nil || !removed {
		t.Fatalf("Remove unit: removed=%v err=%v", removed, err)
	}

	removed, err = store.RemoveUnit(ctx, db, units[0].ID)
	if err != nil || removed {
		t.Errorf("Second removal should match nothing: removed=%v err=%v", removed, err)
	}

	total, err := store.TotalUnitCount(ctx, db, item.ID)
	if err != nil {
		t.Fatalf("Total unit count: %v", err)
	}
	if total != 25 {
		t.Errorf("Expected total 25, got %d", total)
	}

	listed, err := store.ListUnits(ctx, db, item.ID)
	if err != nil {
		t.Fatalf("List units: %v", err)
	}
	if len(listed) != 2 || listed[0].RemovedFromInventory == nil {
		t.Errorf("Expected both units with the first marked removed, got %+v", listed)
	}

	if _, err := store.AddUnit(ctx, db, uuid.New()); !errors.Is(err, database.ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound for unknown item, got %v", err)
	}
	if _, err := store.TotalUnitCount(ctx, db, uuid.New()); !errors.Is(err, database.ErrItemNotFound) {
		t.Errorf("Expected ErrItemNotFound for unknown item, got %v", err)
	}
}

func TestPropertyReplacement(t *testing.T) {
	db := testutil.NewInventoryDB(t)
	ctx := context.Background()

	item, props, err := store.CreateItemWithProperties(ctx, db, &models.InventoryItem{Name: "Paint"},
		[]models.InventoryItemProperty{
			{PropertyName: "color", PropertyValue: "red"},
			{PropertyName: "finish", PropertyValue: "matte"},
		})
	if err != nil {
		t.Fatalf("Create item with properties: %v", err)
	}
	if len(props) != 2 {
		t.Fatalf("Expected 2 properties, got %d", len(props))
	}

	_, added, err := store.UpdateItemWithProperties(ctx, db, item, 1, store.PropertyChange{
		Retire: []string{"finish"},
		Add:    []models.InventoryItemProperty{{PropertyName: "color", PropertyValue: "blue"}},
	})
	if err != nil {
		t.Fatalf("Update with properties: %v", err)
	}
	if len(added) != 1 || added[0].PropertyValue != "blue" {
		t.Errorf("Unexpected added properties: %+v", added)
	}

	active, err := store.ListProperties(ctx, db, item.ID)
	if err != nil {
		t.Fatalf("List properties: %v", err)
	}
	if len(active) != 1 || active[0].PropertyName != "color" || active[0].PropertyValue != "blue" {
		t.Errorf("Expected only color=blue active, got %+v", active)
	}

	history, err := store.ListPropertyHistory(ctx, db, item.ID)
	if err != nil {
		t.Fatalf("List property history: %v", err)
	}
	if len(history) != 3 {
		t.Errorf("Expected 3 property rows in history, got %d", len(history))
	}

	// A stale clock must leave properties untouched.
	_, _, err = store.UpdateItemWithProperties(ctx, db, item, 1, store.PropertyChange{Retire: []string{"color"}})
	if !errors.Is(err, database.ErrConcurrencyConflict) {
		t.Fatalf("Expected conflict, got %v", err)
	}
	active, err = store.ListProperties(ctx, db, item.ID)
	if err != nil {
		t.Fatalf("List properties: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("Rejected update retired properties: %+v", active)
	}
}
