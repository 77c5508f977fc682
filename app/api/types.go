package api

import (
	"time"

	"github.com/lysyi3m/huntfeed/app/database"
	"github.com/lysyi3m/huntfeed/app/hub"
	"github.com/lysyi3m/huntfeed/app/websub"
)

type Handler struct {
	manager    *hub.Manager
	subscriber *websub.Subscriber
	itemRepo   *database.ItemRepository // nil when persistence is disabled
	version    string
	startedAt  time.Time
}

// ItemResponse is the JSON shape of a single feed item.
type ItemResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Content     string     `json:"content,omitempty"`
	Enclosure   string     `json:"enclosure,omitempty"`
	Category    string     `json:"category,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// FeedResponse summarizes one registered feed.
type FeedResponse struct {
	ID         string     `json:"id"`
	URL        string     `json:"url"`
	Title      string     `json:"title,omitempty"`
	Categories []string   `json:"categories,omitempty"`
	ItemCount  int        `json:"item_count"`
	LastUpdate *time.Time `json:"last_update,omitempty"`
	Interval   string     `json:"interval"`
	WebSub     bool       `json:"websub"`
}

// SubscriptionResponse summarizes one WebSub subscription.
type SubscriptionResponse struct {
	Topic        string     `json:"topic"`
	Hub          string     `json:"hub"`
	Verified     bool       `json:"verified"`
	LeaseSeconds int        `json:"lease_seconds"`
	SubscribedAt time.Time  `json:"subscribed_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}
