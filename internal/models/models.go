package models

import (
	"time"

	"github.com/google/uuid"
)

type InventoryItem struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Name            string     `json:"name" db:"name" validate:"notblank,max=255"`
	Description     string     `json:"description,omitempty" db:"description"`
	PartNumber      string     `json:"part_number,omitempty" db:"part_number" validate:"max=100"`
	SerialNumber    string     `json:"serial_number,omitempty" db:"serial_number" validate:"max=100"`
	QuantityPerUnit int        `json:"quantity_per_unit" db:"quantity_per_unit" validate:"gte=0"`
	UnitName        string     `json:"unit_name,omitempty" db:"unit_name" validate:"max=50"`
	UserAttributes  Attributes `json:"user_attributes,omitempty" db:"user_attributes"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
	LamportClock    int64      `json:"lamport_clock" db:"lamport_clock"`
	Deleted         bool       `json:"deleted" db:"deleted"`
}

// ItemUnit is one physical instance of an InventoryItem. Removal is terminal.
type ItemUnit struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	InventoryItemID      uuid.UUID  `json:"inventory_item_id" db:"inventory_item_id"`
	RecordedInInventory  time.Time  `json:"recorded_in_inventory" db:"recorded_in_inventory"`
	RemovedFromInventory *time.Time `json:"removed_from_inventory,omitempty" db:"removed_from_inventory"`
	Removed              bool       `json:"removed" db:"removed"`
}

// InventoryItemProperty is a named value attached to an item. Rows are never
// edited in place: a new value retires the active row and inserts another.
type InventoryItemProperty struct {
	ID              uuid.UUID `json:"id" db:"id"`
	InventoryItemID uuid.UUID `json:"inventory_item_id" db:"inventory_item_id"`
	PropertyName    string    `json:"property_name" db:"property_name" validate:"notblank,max=100"`
	PropertyValue   string    `json:"property_value" db:"property_value"`
	Deleted         bool      `json:"deleted" db:"deleted"`
}

type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)
