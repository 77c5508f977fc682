package feed

import (
	"log/slog"
	"strings"

	"github.com/lysyi3m/huntfeed/app/config"
)

type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

// Run returns the items that pass the configured filters. Dropped items
// are logged at debug level with the matching rule.
func (f *Filterer) Run(items []Item, filters []config.Filter) []Item {
	if len(filters) == 0 {
		return items
	}

	kept := make([]Item, 0, len(items))
	for _, item := range items {
		if reason := f.exclusionReason(item, filters); reason != "" {
			slog.Debug("Item filtered", "title", item.Title, "reason", reason)
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

func (f *Filterer) exclusionReason(item Item, filters []config.Filter) string {
	for _, filter := range filters {
		value := f.fieldValue(item, filter.Field)

		for _, exclude := range filter.Excludes {
			if f.matches(value, exclude) {
				return "excluded by " + filter.Field + " filter: contains '" + exclude + "'"
			}
		}

		if len(filter.Includes) > 0 {
			matched := false
			for _, include := range filter.Includes {
				if f.matches(value, include) {
					matched = true
					break
				}
			}
			if !matched {
				return "excluded by " + filter.Field + " filter: no include rule matched"
			}
		}
	}
	return ""
}

func (f *Filterer) matches(value, pattern string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
}

func (f *Filterer) fieldValue(item Item, field string) string {
	switch field {
	case "title":
		return item.Title
	case "content":
		return item.Content
	case "link":
		return item.Link
	case "category":
		return item.Category
	default:
		return ""
	}
}
