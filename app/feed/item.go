package feed

import (
	"fmt"
	"strings"
	"time"
)

// Item is a normalized feed entry. Items are immutable once constructed:
// WithCategory returns a copy rather than mutating the receiver.
type Item struct {
	ID          string
	Title       string
	Link        string
	Content     string
	Enclosure   string
	PublishedAt time.Time
	Category    string
	Extra       map[string]any
}

// NewItem validates the one structural invariant of the model: an item
// must carry a non-empty ID or a non-empty link.
func NewItem(id, title, link string, publishedAt time.Time) (Item, error) {
	item := Item{
		ID:          id,
		Title:       title,
		Link:        link,
		PublishedAt: publishedAt,
	}
	if !item.Valid() {
		return Item{}, fmt.Errorf("invalid item: either id or link must be provided")
	}
	return item, nil
}

func (i Item) Valid() bool {
	return i.ID != "" || i.Link != ""
}

// WithCategory returns a copy of the item with the category replaced.
func (i Item) WithCategory(category string) Item {
	i.Category = category
	return i
}

// GetExtra looks up an extra field. Dot notation descends into nested
// maps, so "geo.lat" reads Extra["geo"]["lat"].
func (i Item) GetExtra(key string) (any, bool) {
	if len(i.Extra) == 0 {
		return nil, false
	}

	if !strings.Contains(key, ".") {
		v, ok := i.Extra[key]
		return v, ok
	}

	var value any = i.Extra
	for _, k := range strings.Split(key, ".") {
		m, ok := value.(map[string]any)
		if !ok {
			return nil, false
		}
		if value, ok = m[k]; !ok {
			return nil, false
		}
	}
	return value, true
}

func (i Item) HasExtra(key string) bool {
	_, ok := i.GetExtra(key)
	return ok
}

func (i Item) String() string {
	category := i.Category
	if category == "" {
		category = "uncategorized"
	}
	return fmt.Sprintf("%s - %s (%s)", i.Title, i.PublishedAt.Format("2006-01-02 15:04"), category)
}
