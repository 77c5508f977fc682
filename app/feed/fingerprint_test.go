package feed

import (
	"strings"
	"testing"
	"time"
)

func TestFingerprint_Default(t *testing.T) {
	published := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	a := Item{ID: "guid-1", Link: "https://example.com/post-1", Title: "Post One", PublishedAt: published}
	b := Item{ID: "guid-1", Link: "https://example.com/post-1", Title: "Different Title", PublishedAt: published}
	c := Item{ID: "guid-2", Link: "https://example.com/post-1", Title: "Post One", PublishedAt: published}

	if a.Fingerprint(StrategyDefault) != b.Fingerprint(StrategyDefault) {
		t.Error("Default fingerprint should ignore the title")
	}
	if a.Fingerprint(StrategyDefault) == c.Fingerprint(StrategyDefault) {
		t.Error("Default fingerprint should differ when the GUID differs")
	}
}

func TestFingerprint_HexEncoding(t *testing.T) {
	item := Item{ID: "guid-1", Link: "https://example.com/post-1"}

	fp := item.Fingerprint(StrategyDefault)
	if len(fp) != 64 {
		t.Errorf("Expected 64 hex characters, got %d", len(fp))
	}
	if fp != strings.ToLower(fp) {
		t.Error("Fingerprint should be lowercase hex")
	}
}

func TestFingerprint_ContentStrategy(t *testing.T) {
	published := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	a := Item{
		ID:          "guid-1",
		Title:       "Breaking News",
		Content:     "<p>Something <b>happened</b></p>",
		PublishedAt: published,
	}
	b := Item{
		ID:          "guid-other",
		Title:       "BREAKING NEWS",
		Content:     "Something happened",
		PublishedAt: published.Add(5 * time.Hour), // same calendar day
	}
	c := Item{
		ID:          "guid-1",
		Title:       "Breaking News",
		Content:     "<p>Something <b>happened</b></p>",
		PublishedAt: published.AddDate(0, 0, 1),
	}

	if a.Fingerprint(StrategyContent) != b.Fingerprint(StrategyContent) {
		t.Error("Content fingerprint should be case-insensitive and markup-insensitive")
	}
	if a.Fingerprint(StrategyContent) == c.Fingerprint(StrategyContent) {
		t.Error("Content fingerprint should differ across publication days")
	}
}

func TestFingerprint_FuzzyStrategy(t *testing.T) {
	published := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)

	a := Item{ID: "x", Title: "Same Story", Content: "version one", PublishedAt: published}
	b := Item{ID: "y", Title: "same story", Content: "version two, heavily edited", PublishedAt: published.Add(10 * time.Hour)}

	if a.Fingerprint(StrategyFuzzy) != b.Fingerprint(StrategyFuzzy) {
		t.Error("Fuzzy fingerprint should match items with the same title on the same day")
	}
}

func TestFingerprint_UnknownStrategyFallsBackToDefault(t *testing.T) {
	item := Item{ID: "guid-1", Link: "https://example.com/post-1"}

	if item.Fingerprint(Strategy("bogus")) != item.Fingerprint(StrategyDefault) {
		t.Error("Unknown strategy should behave like the default strategy")
	}
}

func TestItem_EqualsAndIsSimilar(t *testing.T) {
	published := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)

	a := Item{ID: "guid-1", Link: "https://example.com/1", Title: "Story", PublishedAt: published}
	b := Item{ID: "guid-2", Link: "https://example.com/2", Title: "Story", PublishedAt: published.Add(2 * time.Hour)}

	if a.Equals(b) {
		t.Error("Items with different GUIDs should not be equal")
	}
	if !a.IsSimilar(b) {
		t.Error("Items with the same title on the same day should be similar")
	}
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain text", "hello world", "hello world"},
		{"simple tags", "<p>hello</p>", "hello"},
		{"nested tags", "<div><p>hello <b>bold</b></p></div>", "hello bold"},
		{"entities", "a &amp; b", "a & b"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripMarkup(tt.input); got != tt.expected {
				t.Errorf("StripMarkup(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}
