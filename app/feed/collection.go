package feed

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

// foldCaser gives Unicode-correct caseless matching for categories and
// search queries, which are frequently non-ASCII.
var foldCaser = cases.Fold()

func fold(s string) string {
	return foldCaser.String(s)
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(fold(haystack), fold(needle))
}

// Collection is the process-wide item store: one snapshot per feed plus
// the category indices. A feed may belong to several categories but has
// exactly one primary category, stamped onto its items on insert.
type Collection struct {
	mu sync.RWMutex

	feeds map[string]*Snapshot
	order []string // feed ids in registration order

	categories map[string]map[string]struct{} // category name -> feed ids
	primary    map[string]string              // feed id -> primary category

	defaultCategory string
}

func NewCollection() *Collection {
	return &Collection{
		feeds:           make(map[string]*Snapshot),
		categories:      make(map[string]map[string]struct{}),
		primary:         make(map[string]string),
		defaultCategory: "Uncategorized",
	}
}

// AddFeed registers a snapshot under the feed id. The first category is
// the primary one; with none given the default category applies.
func (c *Collection) AddFeed(feedID string, snapshot *Snapshot, categories ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.feeds[feedID]; !ok {
		c.order = append(c.order, feedID)
	}
	c.feeds[feedID] = snapshot

	if len(categories) == 0 {
		categories = []string{c.defaultCategory}
	}
	c.primary[feedID] = categories[0]

	for _, category := range categories {
		if c.categories[category] == nil {
			c.categories[category] = make(map[string]struct{})
		}
		c.categories[category][feedID] = struct{}{}
	}

	// Stamp already-present items with the primary category.
	primary := categories[0]
	for _, item := range snapshot.Items() {
		if item.Category != primary {
			fp := item.Fingerprint(StrategyDefault)
			snapshot.items[fp] = item.WithCategory(primary)
		}
	}
}

func (c *Collection) RemoveFeed(feedID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.feeds[feedID]; !ok {
		return false
	}

	delete(c.feeds, feedID)
	delete(c.primary, feedID)
	for i, id := range c.order {
		if id == feedID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	for category, feedIDs := range c.categories {
		delete(feedIDs, feedID)
		if len(feedIDs) == 0 {
			delete(c.categories, category)
		}
	}
	return true
}

func (c *Collection) HasFeed(feedID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.feeds[feedID]
	return ok
}

// AddItem merges one item into a feed's snapshot, stamping the feed's
// primary category first. Returns whether the item was newly inserted;
// false also when the feed is unknown.
func (c *Collection) AddItem(feedID string, item Item) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot, ok := c.feeds[feedID]
	if !ok {
		return false
	}
	if primary := c.primary[feedID]; primary != "" && item.Category != primary {
		item = item.WithCategory(primary)
	}
	return snapshot.AddItem(item)
}

// AllItems returns every item across all feeds in registration order.
func (c *Collection) AllItems() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.allItemsLocked()
}

func (c *Collection) allItemsLocked() []Item {
	var items []Item
	for _, feedID := range c.order {
		items = append(items, c.feeds[feedID].Items()...)
	}
	return items
}

// ItemsByCategory returns items whose feeds match the category exactly,
// unioned with feeds whose category names contain the query as a
// case-insensitive substring. Each feed contributes its items once.
func (c *Collection) ItemsByCategory(category string) []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	matched := make(map[string]struct{})
	for feedID := range c.categories[category] {
		matched[feedID] = struct{}{}
	}
	for name, feedIDs := range c.categories {
		if containsFold(name, category) {
			for feedID := range feedIDs {
				matched[feedID] = struct{}{}
			}
		}
	}

	var items []Item
	for _, feedID := range c.order {
		if _, ok := matched[feedID]; ok {
			items = append(items, c.feeds[feedID].Items()...)
		}
	}
	return items
}

// Search matches the query case-insensitively against title, content,
// category and link, short-circuiting per item on the first hit so each
// item appears at most once.
func (c *Collection) Search(query string) []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var results []Item
	for _, item := range c.allItemsLocked() {
		switch {
		case containsFold(item.Title, query),
			containsFold(item.Content, query),
			item.Category != "" && containsFold(item.Category, query),
			containsFold(item.Link, query):
			results = append(results, item)
		}
	}
	return results
}

// Latest returns up to n items across all feeds, newest first. The sort
// is stable for reproducibility on publication-time ties.
func (c *Collection) Latest(n int) []Item {
	items := c.AllItems()
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if n < len(items) {
		items = items[:n]
	}
	return items
}

// LatestByCategory returns up to n category-matched items, newest first.
func (c *Collection) LatestByCategory(category string, n int) []Item {
	items := c.ItemsByCategory(category)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if n < len(items) {
		items = items[:n]
	}
	return items
}

func (c *Collection) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.categories))
	for name := range c.categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Collection) FeedIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

func (c *Collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.feeds)
}

type Stats struct {
	TotalFeeds      int
	TotalItems      int
	TotalCategories int
	Categories      map[string]CategoryStats
}

type CategoryStats struct {
	Feeds int
	Items int
}

func (c *Collection) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := Stats{
		TotalFeeds:      len(c.feeds),
		TotalCategories: len(c.categories),
		Categories:      make(map[string]CategoryStats, len(c.categories)),
	}
	for _, snapshot := range c.feeds {
		stats.TotalItems += snapshot.Len()
	}
	for name, feedIDs := range c.categories {
		cs := CategoryStats{Feeds: len(feedIDs)}
		for feedID := range feedIDs {
			cs.Items += c.feeds[feedID].Len()
		}
		stats.Categories[name] = cs
	}
	return stats
}
