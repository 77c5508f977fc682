package hub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/huntfeed/app/config"
	"github.com/lysyi3m/huntfeed/app/events"
	"github.com/lysyi3m/huntfeed/app/feed"
	"github.com/lysyi3m/huntfeed/app/scheduler"
	"github.com/lysyi3m/huntfeed/app/websub"
)

// ItemArchive persists newly discovered items. A nil archive disables
// persistence without changing any other behavior.
type ItemArchive interface {
	SaveItem(feedID string, item feed.Item) error
}

// Manager ties the polling scheduler, the aggregated collection and the
// WebSub subscriber together. Items arriving over either path flow
// through the same collection, so the fingerprint check deduplicates
// across poll and push.
type Manager struct {
	collection *feed.Collection
	scheduler  *scheduler.Scheduler
	subscriber *websub.Subscriber
	bus        *events.Bus
	archive    ItemArchive

	mu      sync.Mutex
	topics  map[string]string // feed URL -> feed ID
	configs map[string]*config.FeedConfig

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewManager(collection *feed.Collection, sched *scheduler.Scheduler, subscriber *websub.Subscriber,
	bus *events.Bus, archive ItemArchive) *Manager {
	if collection == nil {
		collection = feed.NewCollection()
	}
	if bus == nil {
		bus = events.NewBus()
	}
	return &Manager{
		collection: collection,
		scheduler:  sched,
		subscriber: subscriber,
		bus:        bus,
		archive:    archive,
		topics:     make(map[string]string),
		configs:    make(map[string]*config.FeedConfig),
	}
}

// RegisterFeed performs the initial fetch, seeds the collection with the
// baseline items and, when the feed opts in and advertises a hub,
// attempts a WebSub subscription. A failed subscription leaves the feed
// on polling only.
func (m *Manager) RegisterFeed(ctx context.Context, cfg *config.FeedConfig) error {
	if !cfg.Settings.Enabled {
		return fmt.Errorf("feed is disabled: %s", cfg.Name)
	}

	opts := scheduler.Options{
		Interval:       time.Duration(cfg.Settings.UpdateInterval) * time.Second,
		KeepHistory:    cfg.Settings.KeepHistory,
		Timeout:        time.Duration(cfg.Settings.Timeout) * time.Second,
		Filters:        cfg.Filters,
		ExtractContent: cfg.Settings.ExtractContent,
	}

	snapshot, raw, err := m.scheduler.Register(ctx, cfg.Name, cfg.URL, opts)
	if err != nil {
		return fmt.Errorf("failed to register feed %s: %w", cfg.Name, err)
	}

	m.collection.AddFeed(cfg.Name, snapshot.Clone(), cfg.Categories...)
	if m.archive != nil {
		for _, item := range snapshot.Items() {
			if err := m.archive.SaveItem(cfg.Name, item); err != nil {
				slog.Warn("Failed to archive item", "feed", cfg.Name, "error", err)
			}
		}
	}

	m.mu.Lock()
	m.topics[cfg.URL] = cfg.Name
	m.configs[cfg.Name] = cfg
	m.mu.Unlock()

	if cfg.Settings.WebSub && m.subscriber != nil {
		m.trySubscribe(ctx, cfg, raw)
	}

	m.bus.Emit(events.Event{Type: events.FeedRegistered, FeedID: cfg.Name, FeedURL: cfg.URL, Count: snapshot.Len()})
	slog.Info("Feed registered", "feed", cfg.Name, "url", cfg.URL, "items", snapshot.Len())
	return nil
}

func (m *Manager) trySubscribe(ctx context.Context, cfg *config.FeedConfig, raw []byte) {
	hubURL := websub.DetectHub(raw)
	if hubURL == "" {
		slog.Info("No hub advertised, using polling only", "feed", cfg.Name)
		return
	}

	err := m.subscriber.Subscribe(ctx, cfg.URL, hubURL, func(v websub.Verification) {
		slog.Info("Hub verified subscription", "feed", cfg.Name, "mode", v.Mode, "lease_seconds", v.LeaseSeconds)
	})
	if err != nil {
		slog.Warn("Subscription failed, falling back to polling", "feed", cfg.Name, "hub", hubURL, "error", err)
	}
}

// RemoveFeed drops the feed from the collection and the scheduler and
// optimistically unsubscribes from its hub if a subscription exists.
func (m *Manager) RemoveFeed(ctx context.Context, feedID string) bool {
	m.mu.Lock()
	cfg, ok := m.configs[feedID]
	if ok {
		delete(m.configs, feedID)
		delete(m.topics, cfg.URL)
	}
	m.mu.Unlock()

	removed := m.collection.RemoveFeed(feedID)
	if m.scheduler.Unregister(feedID) {
		removed = true
	}
	if !removed {
		return false
	}

	if cfg != nil && m.subscriber != nil {
		if _, subscribed := m.subscriber.Subscription(cfg.URL); subscribed {
			if err := m.subscriber.Unsubscribe(ctx, cfg.URL); err != nil {
				slog.Warn("Unsubscribe request failed", "feed", feedID, "error", err)
			}
		}
	}

	feedURL := ""
	if cfg != nil {
		feedURL = cfg.URL
	}
	m.bus.Emit(events.Event{Type: events.FeedRemoved, FeedID: feedID, FeedURL: feedURL})
	slog.Info("Feed removed", "feed", feedID)
	return true
}

// CheckUpdates runs one polling sweep and ingests whatever new items it
// yields. Called periodically from the run loop and usable directly in
// tests.
func (m *Manager) CheckUpdates(ctx context.Context) int {
	total := 0
	for feedID, items := range m.scheduler.CheckUpdates(ctx) {
		total += m.ingest(feedID, items, "poll")
	}
	return total
}

// ForceUpdate refreshes a single feed immediately, bypassing its
// interval gate. Reports whether the feed is registered.
func (m *Manager) ForceUpdate(ctx context.Context, feedID string) (int, bool) {
	items, ok := m.scheduler.ForceUpdate(ctx, feedID)
	if !ok {
		return 0, false
	}
	return m.ingest(feedID, items, "poll"), true
}

// IngestNotification feeds items from a WebSub push into the shared
// collection. The scheduler's snapshot absorbs them too, so the next
// poll does not re-report pushed items. Notifications for topics not
// mapped to a registered feed are dropped.
func (m *Manager) IngestNotification(topic string, items []feed.Item) int {
	m.mu.Lock()
	feedID, ok := m.topics[topic]
	m.mu.Unlock()
	if !ok {
		slog.Warn("Notification for unknown topic", "topic", topic)
		return 0
	}
	m.scheduler.Absorb(feedID, items)
	return m.ingest(feedID, items, "websub")
}

func (m *Manager) ingest(feedID string, items []feed.Item, source string) int {
	inserted := 0
	for _, item := range items {
		if !m.collection.AddItem(feedID, item) {
			continue
		}
		inserted++
		if m.archive != nil {
			if err := m.archive.SaveItem(feedID, item); err != nil {
				slog.Warn("Failed to archive item", "feed", feedID, "error", err)
			}
		}
		emitted := item
		m.bus.Emit(events.Event{Type: events.ItemNew, FeedID: feedID, Item: &emitted, Source: source})
	}
	if inserted > 0 {
		m.bus.Emit(events.Event{Type: events.FeedUpdated, FeedID: feedID, Count: inserted, Source: source})
		slog.Info("Feed updated", "feed", feedID, "new_items", inserted, "source", source)
	}
	return inserted
}

// On registers an observer for an event type.
func (m *Manager) On(t events.Type, h events.Handler) {
	m.bus.On(t, h)
}

// Start launches the periodic polling loop. Stop terminates it and
// waits for an in-flight sweep to finish.
func (m *Manager) Start(interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	m.stopCh = make(chan struct{})
	m.wg.Add(1)

	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		slog.Info("Scheduler started", "interval", interval)
		for {
			select {
			case <-ticker.C:
				m.CheckUpdates(context.Background())
			case <-m.stopCh:
				return
			}
		}
	}()
}

func (m *Manager) Stop() {
	if m.stopCh == nil {
		return
	}
	close(m.stopCh)
	m.wg.Wait()
	m.stopCh = nil
	slog.Info("Scheduler stopped")
}

// Collection accessors used by the HTTP API.

func (m *Manager) Search(query string) []feed.Item { return m.collection.Search(query) }
func (m *Manager) Latest(n int) []feed.Item        { return m.collection.Latest(n) }
func (m *Manager) ItemsByCategory(category string) []feed.Item {
	return m.collection.ItemsByCategory(category)
}
func (m *Manager) Stats() feed.Stats    { return m.collection.Stats() }
func (m *Manager) FeedIDs() []string    { return m.collection.FeedIDs() }
func (m *Manager) Categories() []string { return m.collection.Categories() }

func (m *Manager) FeedStatus(feedID string) (scheduler.FeedStatus, bool) {
	return m.scheduler.Status(feedID)
}

func (m *Manager) AllFeedStatus() []scheduler.FeedStatus {
	return m.scheduler.AllStatus()
}

func (m *Manager) FeedSnapshot(feedID string) (*feed.Snapshot, bool) {
	return m.scheduler.Snapshot(feedID)
}

func (m *Manager) FeedConfig(feedID string) (*config.FeedConfig, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[feedID]
	return cfg, ok
}
