package feed

import (
	"testing"
	"time"
)

func snapshotItem(id, title string, published time.Time) Item {
	return Item{ID: id, Link: "https://example.com/" + id, Title: title, PublishedAt: published}
}

func TestSnapshot_AddItem_FirstWriteWins(t *testing.T) {
	s := NewSnapshot("https://example.com/feed.xml", "Example")
	published := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	original := snapshotItem("guid-1", "Original Title", published)
	if !s.AddItem(original) {
		t.Fatal("Expected first insert to succeed")
	}

	revised := snapshotItem("guid-1", "Revised Title", published)
	if s.AddItem(revised) {
		t.Error("Expected duplicate insert to be a no-op")
	}

	got, ok := s.Get(original.Fingerprint(StrategyDefault))
	if !ok {
		t.Fatal("Item should still be present")
	}
	if got.Title != "Original Title" {
		t.Errorf("Expected stored title 'Original Title', got '%s'", got.Title)
	}
	if s.Len() != 1 {
		t.Errorf("Expected 1 item, got %d", s.Len())
	}
}

func TestSnapshot_Items_InsertionOrder(t *testing.T) {
	s := NewSnapshot("https://example.com/feed.xml", "Example")
	published := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	s.AddItem(snapshotItem("b", "Second", published))
	s.AddItem(snapshotItem("a", "First", published))
	s.AddItem(snapshotItem("c", "Third", published))

	items := s.Items()
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	if items[0].Title != "Second" || items[1].Title != "First" || items[2].Title != "Third" {
		t.Errorf("Items should keep insertion order, got %s, %s, %s",
			items[0].Title, items[1].Title, items[2].Title)
	}
}

func TestSnapshot_Latest_NewestFirstStableTies(t *testing.T) {
	s := NewSnapshot("https://example.com/feed.xml", "Example")
	base := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	s.AddItem(snapshotItem("old", "Old", base.Add(-24*time.Hour)))
	s.AddItem(snapshotItem("tie-1", "Tie One", base))
	s.AddItem(snapshotItem("tie-2", "Tie Two", base))
	s.AddItem(snapshotItem("new", "New", base.Add(time.Hour)))

	latest := s.Latest(3)
	if len(latest) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(latest))
	}
	if latest[0].Title != "New" {
		t.Errorf("Expected newest item first, got '%s'", latest[0].Title)
	}
	// Equal timestamps keep insertion order
	if latest[1].Title != "Tie One" || latest[2].Title != "Tie Two" {
		t.Errorf("Expected stable tie order, got '%s', '%s'", latest[1].Title, latest[2].Title)
	}
}

func TestSnapshot_Latest_LimitBeyondSize(t *testing.T) {
	s := NewSnapshot("https://example.com/feed.xml", "Example")
	s.AddItem(snapshotItem("a", "Only", time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)))

	if got := len(s.Latest(10)); got != 1 {
		t.Errorf("Expected 1 item, got %d", got)
	}
}

func TestSnapshot_After(t *testing.T) {
	s := NewSnapshot("https://example.com/feed.xml", "Example")
	cutoff := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	s.AddItem(snapshotItem("before", "Before", cutoff.Add(-time.Hour)))
	s.AddItem(snapshotItem("exact", "Exact", cutoff))
	s.AddItem(snapshotItem("after", "After", cutoff.Add(time.Hour)))

	items := s.After(cutoff)
	if len(items) != 1 {
		t.Fatalf("Expected 1 item strictly after cutoff, got %d", len(items))
	}
	if items[0].Title != "After" {
		t.Errorf("Expected 'After', got '%s'", items[0].Title)
	}
}

func TestSnapshot_Remove(t *testing.T) {
	s := NewSnapshot("https://example.com/feed.xml", "Example")
	item := snapshotItem("a", "Item", time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC))
	s.AddItem(item)

	fp := item.Fingerprint(StrategyDefault)
	if !s.Remove(fp) {
		t.Error("Expected remove of existing item to succeed")
	}
	if s.Remove(fp) {
		t.Error("Expected remove of missing item to report false")
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty snapshot, got %d items", s.Len())
	}
}

func TestSnapshot_Clone_Independent(t *testing.T) {
	s := NewSnapshot("https://example.com/feed.xml", "Example")
	published := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	s.AddItem(snapshotItem("a", "Original", published))

	clone := s.Clone()
	s.AddItem(snapshotItem("b", "Added Later", published))

	if clone.Len() != 1 {
		t.Errorf("Clone should not see later inserts, got %d items", clone.Len())
	}
	if s.Len() != 2 {
		t.Errorf("Original should have 2 items, got %d", s.Len())
	}
}
