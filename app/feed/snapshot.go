package feed

import (
	"sort"
	"time"
)

// Snapshot is the observed state of one feed: items keyed by their
// default fingerprint. At most one item per fingerprint; the first write
// wins and later inserts with the same fingerprint are no-ops.
//
// A Snapshot is not safe for concurrent use; its owner (scheduler entry
// or collection) serializes access.
type Snapshot struct {
	URL   string
	Title string

	items map[string]Item
	order []string // fingerprints in insertion order
}

func NewSnapshot(url, title string) *Snapshot {
	return &Snapshot{
		URL:   url,
		Title: title,
		items: make(map[string]Item),
	}
}

// AddItem inserts the item under its default fingerprint if absent.
// Returns whether the item was newly inserted; callers rely on this to
// decide whether to announce it.
func (s *Snapshot) AddItem(item Item) bool {
	fingerprint := item.Fingerprint(StrategyDefault)
	if _, ok := s.items[fingerprint]; ok {
		return false
	}
	s.items[fingerprint] = item
	s.order = append(s.order, fingerprint)
	return true
}

// AddItems inserts a batch, returning how many were newly inserted.
func (s *Snapshot) AddItems(items []Item) int {
	added := 0
	for _, item := range items {
		if s.AddItem(item) {
			added++
		}
	}
	return added
}

// Items returns all items in insertion order.
func (s *Snapshot) Items() []Item {
	items := make([]Item, 0, len(s.items))
	for _, fp := range s.order {
		items = append(items, s.items[fp])
	}
	return items
}

func (s *Snapshot) Len() int {
	return len(s.items)
}

func (s *Snapshot) Has(fingerprint string) bool {
	_, ok := s.items[fingerprint]
	return ok
}

func (s *Snapshot) Get(fingerprint string) (Item, bool) {
	item, ok := s.items[fingerprint]
	return item, ok
}

func (s *Snapshot) Remove(fingerprint string) bool {
	if _, ok := s.items[fingerprint]; !ok {
		return false
	}
	delete(s.items, fingerprint)
	for i, fp := range s.order {
		if fp == fingerprint {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Fingerprints returns the known fingerprint set, the input for update
// detection.
func (s *Snapshot) Fingerprints() map[string]struct{} {
	known := make(map[string]struct{}, len(s.items))
	for fp := range s.items {
		known[fp] = struct{}{}
	}
	return known
}

// Sorted returns the items ordered by publication time descending. The
// sort is stable so ties keep insertion order.
func (s *Snapshot) Sorted() []Item {
	items := s.Items()
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	return items
}

// Latest returns up to n items, newest first.
func (s *Snapshot) Latest(n int) []Item {
	items := s.Sorted()
	if n < len(items) {
		items = items[:n]
	}
	return items
}

// After returns items published strictly after t.
func (s *Snapshot) After(t time.Time) []Item {
	var items []Item
	for _, item := range s.Items() {
		if item.PublishedAt.After(t) {
			items = append(items, item)
		}
	}
	return items
}

// Clone returns an independent copy. History rings store clones so later
// merges do not rewrite recorded versions.
func (s *Snapshot) Clone() *Snapshot {
	clone := NewSnapshot(s.URL, s.Title)
	clone.order = append([]string(nil), s.order...)
	for fp, item := range s.items {
		clone.items[fp] = item
	}
	return clone
}
