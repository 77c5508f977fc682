package feed

import (
	"testing"
	"time"
)

func TestNewItem_RequiresIDOrLink(t *testing.T) {
	published := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	if _, err := NewItem("guid-1", "Title", "", published); err != nil {
		t.Errorf("Item with ID only should be valid: %v", err)
	}
	if _, err := NewItem("", "Title", "https://example.com/1", published); err != nil {
		t.Errorf("Item with link only should be valid: %v", err)
	}
	if _, err := NewItem("", "Title", "", published); err == nil {
		t.Error("Item with neither ID nor link should be rejected")
	}
}

func TestItem_WithCategory_ReturnsCopy(t *testing.T) {
	original := Item{ID: "1", Category: "Old"}
	modified := original.WithCategory("New")

	if original.Category != "Old" {
		t.Error("WithCategory must not mutate the receiver")
	}
	if modified.Category != "New" {
		t.Errorf("Expected category 'New', got '%s'", modified.Category)
	}
}

func TestItem_GetExtra(t *testing.T) {
	item := Item{
		ID: "1",
		Extra: map[string]any{
			"authors": []string{"jane@example.com (Jane)"},
			"geo": map[string]any{
				"lat":  51.5,
				"long": -0.1,
			},
		},
	}

	if _, ok := item.GetExtra("authors"); !ok {
		t.Error("Expected top-level extra 'authors' to resolve")
	}

	lat, ok := item.GetExtra("geo.lat")
	if !ok {
		t.Fatal("Expected dotted path 'geo.lat' to resolve")
	}
	if lat != 51.5 {
		t.Errorf("Expected 51.5, got %v", lat)
	}

	if _, ok := item.GetExtra("geo.altitude"); ok {
		t.Error("Missing nested key should not resolve")
	}
	if _, ok := item.GetExtra("missing"); ok {
		t.Error("Missing top-level key should not resolve")
	}
	if item.HasExtra("geo.lat.deeper") {
		t.Error("Descending through a non-map value should not resolve")
	}
}

func TestItem_GetExtra_NoExtras(t *testing.T) {
	item := Item{ID: "1"}
	if _, ok := item.GetExtra("anything"); ok {
		t.Error("Item without extras should resolve nothing")
	}
}
