package websub

import (
	"fmt"
	"sync"
	"time"
)

// Subscription tracks one topic's push registration. It is created
// pending on subscribe, transitions to verified exactly once when the
// hub's challenge round-trip completes, and is removed on unsubscribe.
type Subscription struct {
	FeedURL      string
	HubURL       string
	CallbackURL  string
	Secret       string
	LeaseSeconds int
	SubscribedAt time.Time
	Verified     bool
	ExpiresAt    time.Time // informational; lease expiry is not enforced

	onVerified func(Verification)
}

// Verification is the payload handed to the onVerified callback.
type Verification struct {
	FeedURL      string
	Mode         string
	LeaseSeconds int
}

// SubscriptionError reports a failed subscribe/unsubscribe exchange with
// a hub.
type SubscriptionError struct {
	HubURL string
	Status int
	Err    error
}

func (e *SubscriptionError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("hub %s returned HTTP %d", e.HubURL, e.Status)
	}
	return fmt.Sprintf("hub request to %s failed: %v", e.HubURL, e.Err)
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}

// VerificationError reports a challenge request that is missing required
// fields or references an unknown topic.
type VerificationError struct {
	Topic   string
	Reason  string
	Missing bool // required parameters absent (400-class, not 403)
}

func (e *VerificationError) Error() string {
	if e.Topic != "" {
		return fmt.Sprintf("verification failed for topic %s: %s", e.Topic, e.Reason)
	}
	return "verification failed: " + e.Reason
}

// SignatureError reports an unauthenticated or wrongly authenticated
// push notification.
type SignatureError struct {
	Reason string
}

func (e *SignatureError) Error() string {
	return "signature verification failed: " + e.Reason
}

// SubscriptionStore holds subscriptions keyed by topic URL. Get and
// All hand out copies; mutation goes through Update, which runs the
// given function under the store's lock so readers never observe a
// half-applied state transition.
type SubscriptionStore interface {
	Get(topic string) (Subscription, bool)
	Put(sub Subscription)
	Update(topic string, fn func(*Subscription)) bool
	Delete(topic string) bool
	All() []Subscription
}

type memoryStore struct {
	mu   sync.RWMutex
	subs map[string]Subscription
}

func NewMemoryStore() SubscriptionStore {
	return &memoryStore{subs: make(map[string]Subscription)}
}

func (s *memoryStore) Get(topic string) (Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[topic]
	return sub, ok
}

func (s *memoryStore) Put(sub Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub.FeedURL] = sub
}

func (s *memoryStore) Update(topic string, fn func(*Subscription)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[topic]
	if !ok {
		return false
	}
	fn(&sub)
	s.subs[topic] = sub
	return true
}

func (s *memoryStore) Delete(topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subs[topic]; !ok {
		return false
	}
	delete(s.subs, topic)
	return true
}

func (s *memoryStore) All() []Subscription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subs := make([]Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	return subs
}
