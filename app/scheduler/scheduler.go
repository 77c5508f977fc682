package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/huntfeed/app/config"
	"github.com/lysyi3m/huntfeed/app/feed"
)

// HistoryLimit bounds the per-feed version history: the oldest snapshot
// is evicted when the 11th is appended.
const HistoryLimit = 10

const DefaultInterval = 30 * time.Minute

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*feed.Snapshot, []byte, error)
}

type Extractor interface {
	Extract(ctx context.Context, pageURL string) (string, error)
}

// Options configures one registered feed.
type Options struct {
	Interval       time.Duration
	KeepHistory    bool
	Timeout        time.Duration
	Filters        []config.Filter
	ExtractContent bool
}

type entry struct {
	feedID     string
	url        string
	interval   time.Duration
	lastUpdate time.Time
	opts       Options

	snapshot *feed.Snapshot
	raw      []byte
	history  []*feed.Snapshot
}

// FeedStatus is a read-only view of one feed's cadence state.
type FeedStatus struct {
	FeedID      string
	URL         string
	Interval    time.Duration
	LastUpdate  time.Time
	NextUpdate  time.Time
	ItemCount   int
	HistoryLen  int
	KeepHistory bool
}

// Scheduler owns the per-feed cadence state. All mutation goes through
// its mutex, so concurrent sweeps, force updates and status reads are
// serialized.
type Scheduler struct {
	fetcher   Fetcher
	detector  *feed.Detector
	filterer  *feed.Filterer
	extractor Extractor // optional

	mu      sync.Mutex
	entries map[string]*entry
	order   []string

	now func() time.Time
}

func NewScheduler(fetcher Fetcher, extractor Extractor) *Scheduler {
	return &Scheduler{
		fetcher:   fetcher,
		detector:  feed.NewDetector(),
		filterer:  feed.NewFilterer(),
		extractor: extractor,
		entries:   make(map[string]*entry),
		now:       time.Now,
	}
}

// Register performs an immediate fetch to seed the baseline snapshot.
// If that fetch fails no registration takes place.
func (s *Scheduler) Register(ctx context.Context, feedID, url string, opts Options) (*feed.Snapshot, []byte, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}

	snapshot, raw, err := s.fetch(ctx, url, opts.Timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to register feed %s: %w", feedID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{
		feedID:     feedID,
		url:        url,
		interval:   opts.Interval,
		lastUpdate: s.now(),
		opts:       opts,
		snapshot:   snapshot,
		raw:        raw,
	}
	if opts.KeepHistory {
		e.history = []*feed.Snapshot{snapshot.Clone()}
	}

	if _, ok := s.entries[feedID]; !ok {
		s.order = append(s.order, feedID)
	}
	s.entries[feedID] = e

	return snapshot, raw, nil
}

func (s *Scheduler) Unregister(feedID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[feedID]; !ok {
		return false
	}
	delete(s.entries, feedID)
	for i, id := range s.order {
		if id == feedID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// CheckUpdates sweeps all registered feeds in registration order. Feeds
// not yet due are skipped without a fetch. A fetch or parse failure for
// one feed is logged, leaves its cadence state untouched so it retries
// next cycle, and never aborts the sweep for the remaining feeds.
// Returns the new items keyed by feed id.
func (s *Scheduler) CheckUpdates(ctx context.Context) map[string][]feed.Item {
	updates := make(map[string][]feed.Item)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, feedID := range s.order {
		e := s.entries[feedID]

		if now.Sub(e.lastUpdate) < e.interval {
			continue
		}

		newItems, err := s.refresh(ctx, e, false)
		if err != nil {
			slog.Warn("Feed update failed", "feed", feedID, "url", e.url, "error", err)
			continue
		}
		if len(newItems) > 0 {
			updates[feedID] = newItems
		}
	}

	return updates
}

// ForceUpdate bypasses the interval gate for one feed. Merge semantics
// match CheckUpdates; the cadence clock always advances on a successful
// fetch. Returns the new items and whether the update succeeded.
func (s *Scheduler) ForceUpdate(ctx context.Context, feedID string) ([]feed.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[feedID]
	if !ok {
		return nil, false
	}

	newItems, err := s.refresh(ctx, e, true)
	if err != nil {
		slog.Warn("Forced feed update failed", "feed", feedID, "url", e.url, "error", err)
		return nil, false
	}
	return newItems, true
}

// refresh fetches a fresh snapshot and runs it through the filterer and
// the update detector. New items are merged into the stored snapshot
// (first write wins), the clock advances and a history version is
// recorded. Without new items the clock only advances on force.
func (s *Scheduler) refresh(ctx context.Context, e *entry, force bool) ([]feed.Item, error) {
	fresh, raw, err := s.fetch(ctx, e.url, e.opts.Timeout)
	if err != nil {
		return nil, err
	}

	current := s.filterer.Run(fresh.Items(), e.opts.Filters)
	newItems := s.detector.Detect(current, e.snapshot.Fingerprints())

	if s.extractor != nil && e.opts.ExtractContent {
		s.extractContent(ctx, e, newItems)
	}

	if len(newItems) > 0 {
		e.snapshot.AddItems(newItems)
		e.snapshot.Title = fresh.Title
		e.lastUpdate = s.now()
		e.raw = raw
		s.appendHistory(e)
		slog.Info("Feed updated", "feed", e.feedID, "new", len(newItems), "total", e.snapshot.Len())
	} else if force {
		e.lastUpdate = s.now()
		e.raw = raw
	}

	return newItems, nil
}

func (s *Scheduler) extractContent(ctx context.Context, e *entry, items []feed.Item) {
	for i, item := range items {
		if item.Content != "" || item.Link == "" {
			continue
		}
		content, err := s.extractor.Extract(ctx, item.Link)
		if err != nil {
			slog.Warn("Content extraction failed", "feed", e.feedID, "link", item.Link, "error", err)
			continue
		}
		items[i].Content = content
	}
}

// Absorb merges push-delivered items into a feed's stored snapshot so
// the next poll does not report them as new again. The cadence clock is
// left untouched; a history version is recorded when the snapshot
// actually changed. Returns how many items were newly absorbed.
func (s *Scheduler) Absorb(feedID string, items []feed.Item) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[feedID]
	if !ok {
		return 0
	}
	added := e.snapshot.AddItems(items)
	if added > 0 {
		s.appendHistory(e)
	}
	return added
}

func (s *Scheduler) appendHistory(e *entry) {
	if !e.opts.KeepHistory {
		return
	}
	e.history = append(e.history, e.snapshot.Clone())
	if len(e.history) > HistoryLimit {
		e.history = e.history[len(e.history)-HistoryLimit:]
	}
}

func (s *Scheduler) fetch(ctx context.Context, url string, timeout time.Duration) (*feed.Snapshot, []byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.fetcher.Fetch(ctx, url)
}

// History returns the recorded snapshot versions, oldest first. Nil when
// the feed is unknown or keeps no history.
func (s *Scheduler) History(feedID string) []*feed.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[feedID]
	if !ok {
		return nil
	}
	return append([]*feed.Snapshot(nil), e.history...)
}

// Snapshot returns the stored snapshot for a feed.
func (s *Scheduler) Snapshot(feedID string) (*feed.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[feedID]
	if !ok {
		return nil, false
	}
	return e.snapshot, true
}

// Raw returns the raw payload of the most recent fetch, used for hub
// discovery.
func (s *Scheduler) Raw(feedID string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[feedID]
	if !ok {
		return nil, false
	}
	return e.raw, true
}

func (s *Scheduler) Status(feedID string) (FeedStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[feedID]
	if !ok {
		return FeedStatus{}, false
	}
	return s.statusLocked(e), true
}

func (s *Scheduler) AllStatus() []FeedStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]FeedStatus, 0, len(s.order))
	for _, feedID := range s.order {
		statuses = append(statuses, s.statusLocked(s.entries[feedID]))
	}
	return statuses
}

func (s *Scheduler) statusLocked(e *entry) FeedStatus {
	return FeedStatus{
		FeedID:      e.feedID,
		URL:         e.url,
		Interval:    e.interval,
		LastUpdate:  e.lastUpdate,
		NextUpdate:  e.lastUpdate.Add(e.interval),
		ItemCount:   e.snapshot.Len(),
		HistoryLen:  len(e.history),
		KeepHistory: e.opts.KeepHistory,
	}
}

func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
