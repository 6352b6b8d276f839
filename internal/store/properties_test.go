package store

import (
	"testing"

	"github.com/safar/inventory-store/internal/models"
)

func TestPropertyChangeRetireNames(t *testing.T) {
	change := PropertyChange{
		Retire: []string{"size", "color", "size"},
		Add: []models.InventoryItemProperty{
			{PropertyName: "color", PropertyValue: "blue"},
			{PropertyName: "weight", PropertyValue: "2kg"},
		},
	}

	got := change.retireNames()
	want := []string{"size", "color", "weight"}

	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %q at %d, got %q", want[i], i, got[i])
		}
	}

	if names := (PropertyChange{}).retireNames(); len(names) != 0 {
		t.Errorf("Expected no names for an empty change, got %v", names)
	}
}
