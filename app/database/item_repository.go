package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lysyi3m/huntfeed/app/feed"
)

// ArchivedItem is the persisted form of a feed item.
type ArchivedItem struct {
	ID          int64
	FeedID      string
	Fingerprint string
	GUID        string
	Title       string
	Link        string
	Content     string
	Enclosure   string
	Category    string
	PublishedAt *time.Time
	ArchivedAt  time.Time
}

// ItemRepository handles database operations for archived items
type ItemRepository struct {
	db *DB
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// SaveItem archives an item. Re-archiving an item with the same
// fingerprint for the same feed is a no-op, mirroring the in-memory
// first-write-wins rule.
func (r *ItemRepository) SaveItem(feedID string, item feed.Item) error {
	var publishedAt any
	if !item.PublishedAt.IsZero() {
		publishedAt = item.PublishedAt.UTC()
	}

	_, err := r.db.Exec(`
		INSERT INTO archived_items (
			feed_id, fingerprint, guid, title, link, content,
			enclosure, category, published_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (feed_id, fingerprint) DO NOTHING
	`, feedID, item.Fingerprint(feed.StrategyDefault), item.ID, item.Title, item.Link,
		item.Content, item.Enclosure, item.Category, publishedAt)

	if err != nil {
		return fmt.Errorf("failed to archive item: %w", err)
	}
	return nil
}

// GetRecentItems returns the most recently published items for a feed.
func (r *ItemRepository) GetRecentItems(feedID string, limit int) ([]ArchivedItem, error) {
	rows, err := r.db.Query(`
		SELECT id, feed_id, fingerprint, guid, title, link, content,
		       enclosure, category, published_at, archived_at
		FROM archived_items
		WHERE feed_id = ?
		ORDER BY COALESCE(published_at, archived_at) DESC
		LIMIT ?
	`, feedID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// GetItemCount returns the number of archived items for a feed.
func (r *ItemRepository) GetItemCount(feedID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM archived_items WHERE feed_id = ?", feedID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get item count: %w", err)
	}
	return count, nil
}

// GetTotalCount returns the number of archived items across all feeds.
func (r *ItemRepository) GetTotalCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM archived_items").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get total item count: %w", err)
	}
	return count, nil
}

// DeleteFeedItems removes all archived items belonging to a feed.
func (r *ItemRepository) DeleteFeedItems(feedID string) (int64, error) {
	result, err := r.db.Exec("DELETE FROM archived_items WHERE feed_id = ?", feedID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete feed items: %w", err)
	}
	return result.RowsAffected()
}

func scanItems(rows *sql.Rows) ([]ArchivedItem, error) {
	var items []ArchivedItem
	for rows.Next() {
		var item ArchivedItem
		var publishedAt sql.NullTime
		err := rows.Scan(
			&item.ID, &item.FeedID, &item.Fingerprint, &item.GUID, &item.Title,
			&item.Link, &item.Content, &item.Enclosure, &item.Category,
			&publishedAt, &item.ArchivedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		if publishedAt.Valid {
			t := publishedAt.Time
			item.PublishedAt = &t
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}
	return items, nil
}
