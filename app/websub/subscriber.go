package websub

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/lysyi3m/huntfeed/app/feed"
	"github.com/lysyi3m/huntfeed/app/parser"
)

// Subscriber implements the subscriber half of the WebSub protocol:
// subscribe against a hub, answer its verification challenge,
// authenticate and parse push notifications, unsubscribe.
type Subscriber struct {
	httpClient *http.Client
	parser     *parser.AutoDetect
	store      SubscriptionStore

	callbackURL      string
	leaseSeconds     int
	requireSignature bool
	userAgent        string

	// Unsubscribed topics are tombstoned so notifications still in
	// flight on the hub side are acknowledged and dropped instead of
	// being treated as unknown.
	mu         sync.Mutex
	tombstones map[string]time.Time
}

func NewSubscriber(httpClient *http.Client, autoDetect *parser.AutoDetect, store SubscriptionStore,
	callbackURL string, leaseSeconds int, requireSignature bool, userAgent string) *Subscriber {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if autoDetect == nil {
		autoDetect = parser.NewAutoDetect()
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Subscriber{
		httpClient:       httpClient,
		parser:           autoDetect,
		store:            store,
		callbackURL:      callbackURL,
		leaseSeconds:     leaseSeconds,
		requireSignature: requireSignature,
		userAgent:        userAgent,
		tombstones:       make(map[string]time.Time),
	}
}

// DetectHub scans feed content for a link with relation "hub" and
// returns its href, or "" when the feed advertises none. Absence of a
// hub is not an error, only a signal to fall back to polling.
func DetectHub(content []byte) string {
	decoder := xml.NewDecoder(bytes.NewReader(content))
	decoder.Strict = false

	inChannel := 0
	for {
		token, err := decoder.Token()
		if err != nil {
			return ""
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "channel", "feed":
				inChannel++
			case "link":
				if inChannel == 0 {
					continue
				}
				var rel, href string
				for _, attr := range t.Attr {
					switch attr.Name.Local {
					case "rel":
						rel = attr.Value
					case "href":
						href = attr.Value
					}
				}
				if rel == "hub" && href != "" {
					return href
				}
			}
		case xml.EndElement:
			if t.Name.Local == "channel" || t.Name.Local == "feed" {
				inChannel--
			}
		}
	}
}

// Subscribe sends a subscription request for the topic to the hub and
// stores the subscription pending verification. A transport failure
// yields an error and no subscription. onVerified, if non-nil, fires
// once the hub's challenge completes.
func (s *Subscriber) Subscribe(ctx context.Context, feedURL, hubURL string, onVerified func(Verification)) error {
	secret, err := generateSecret()
	if err != nil {
		return fmt.Errorf("failed to generate subscription secret: %w", err)
	}

	form := url.Values{
		"hub.callback":      {s.callbackURL},
		"hub.mode":          {"subscribe"},
		"hub.topic":         {feedURL},
		"hub.lease_seconds": {strconv.Itoa(s.leaseSeconds)},
		"hub.secret":        {secret},
	}

	if err := s.sendHubRequest(ctx, hubURL, form); err != nil {
		return err
	}

	now := time.Now()
	s.store.Put(Subscription{
		FeedURL:      feedURL,
		HubURL:       hubURL,
		CallbackURL:  s.callbackURL,
		Secret:       secret,
		LeaseSeconds: s.leaseSeconds,
		SubscribedAt: now,
		ExpiresAt:    now.Add(time.Duration(s.leaseSeconds) * time.Second),
		onVerified:   onVerified,
	})

	s.mu.Lock()
	delete(s.tombstones, feedURL)
	s.mu.Unlock()

	slog.Info("Subscription request sent", "topic", feedURL, "hub", hubURL)
	return nil
}

// Unsubscribe notifies the hub and drops local state immediately. This
// is deliberately optimistic: the hub's own unsubscribe verification is
// not awaited, and a tombstone absorbs notifications that race it.
func (s *Subscriber) Unsubscribe(ctx context.Context, feedURL string) error {
	sub, ok := s.store.Get(feedURL)
	if !ok {
		return &SubscriptionError{Err: fmt.Errorf("feed not subscribed: %s", feedURL)}
	}

	form := url.Values{
		"hub.callback": {sub.CallbackURL},
		"hub.mode":     {"unsubscribe"},
		"hub.topic":    {feedURL},
	}

	if err := s.sendHubRequest(ctx, sub.HubURL, form); err != nil {
		return err
	}

	s.store.Delete(feedURL)
	s.mu.Lock()
	s.tombstones[feedURL] = time.Now()
	s.mu.Unlock()

	slog.Info("Unsubscribed from hub", "topic", feedURL, "hub", sub.HubURL)
	return nil
}

// VerifyChallenge validates a hub verification request. On success the
// matching subscription becomes verified, the hub-granted lease is
// recorded, and the challenge value is returned for the caller to echo
// verbatim.
func (s *Subscriber) VerifyChallenge(query url.Values) (string, error) {
	challenge := query.Get("hub.challenge")
	topic := query.Get("hub.topic")
	if challenge == "" || topic == "" {
		return "", &VerificationError{Reason: "missing required verification parameters", Missing: true}
	}

	mode := query.Get("hub.mode")
	if mode == "" {
		mode = "subscribe"
	}
	leaseSeconds, _ := strconv.Atoi(query.Get("hub.lease_seconds"))

	var onVerified func(Verification)
	ok := s.store.Update(topic, func(sub *Subscription) {
		sub.Verified = true
		if leaseSeconds > 0 {
			sub.LeaseSeconds = leaseSeconds
			sub.ExpiresAt = time.Now().Add(time.Duration(leaseSeconds) * time.Second)
		}
		onVerified = sub.onVerified
	})
	if !ok {
		return "", &VerificationError{Topic: topic, Reason: "no subscription for topic"}
	}

	if onVerified != nil {
		onVerified(Verification{FeedURL: topic, Mode: mode, LeaseSeconds: leaseSeconds})
	}

	slog.Info("Subscription verified", "topic", topic, "mode", mode, "lease_seconds", leaseSeconds)
	return challenge, nil
}

// HandleNotification authenticates and parses a push notification.
// The signature, when present, is checked strictly against the secret
// of the subscription whose topic matches the notification's declared
// source. Returns the resolved topic and the parsed items.
func (s *Subscriber) HandleNotification(body []byte, header http.Header) (string, []feed.Item, error) {
	topic := topicFromLinkHeader(header)

	// Without a Link header the topic can only come from the body's
	// self link, so the body is parsed once up front and reused below.
	var snapshot *feed.Snapshot
	var parseErr error
	if topic == "" {
		snapshot, parseErr = s.parser.Parse(body, "")
		if parseErr == nil {
			topic = snapshot.URL
		}
	}

	if topic != "" && s.isTombstoned(topic) {
		slog.Info("Dropping notification for unsubscribed topic", "topic", topic)
		return topic, nil, nil
	}

	signature := header.Get("X-Hub-Signature")
	if signature == "" {
		if s.requireSignature {
			return topic, nil, &SignatureError{Reason: "missing X-Hub-Signature header"}
		}
		slog.Warn("Accepting unauthenticated notification", "topic", topic)
	} else {
		if err := s.verifySignature(body, signature, topic); err != nil {
			return topic, nil, err
		}
	}

	if snapshot == nil {
		if parseErr != nil {
			return topic, nil, parseErr
		}
		snapshot, parseErr = s.parser.Parse(body, topic)
		if parseErr != nil {
			return topic, nil, parseErr
		}
	}

	return topic, snapshot.Items(), nil
}

// topicFromLinkHeader returns the Link header's rel="self" target, or
// "" when the header carries none.
func topicFromLinkHeader(header http.Header) string {
	for _, value := range header.Values("Link") {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if !strings.Contains(part, `rel="self"`) && !strings.Contains(part, "rel=self") {
				continue
			}
			start := strings.Index(part, "<")
			end := strings.Index(part, ">")
			if start >= 0 && end > start {
				return part[start+1 : end]
			}
		}
	}
	return ""
}

func (s *Subscriber) verifySignature(body []byte, signature, topic string) error {
	algo, received, found := strings.Cut(signature, "=")
	if !found {
		return &SignatureError{Reason: "invalid signature format"}
	}
	if algo != "sha1" {
		return &SignatureError{Reason: "unsupported signature algorithm: " + algo}
	}

	if topic == "" {
		return &SignatureError{Reason: "cannot resolve notification topic for signature check"}
	}
	sub, ok := s.store.Get(topic)
	if !ok {
		return &SignatureError{Reason: "no subscription for topic " + topic}
	}

	mac := hmac.New(sha1.New, []byte(sub.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(received))) {
		return &SignatureError{Reason: "signature mismatch"}
	}
	return nil
}

func (s *Subscriber) isTombstoned(topic string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tombstones[topic]
	return ok
}

// sendHubRequest posts a form-encoded request to the hub, retrying
// transient failures with exponential backoff. 4xx responses are
// treated as permanent rejections.
func (s *Subscriber) sendHubRequest(ctx context.Context, hubURL string, form url.Values) error {
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, hubURL, strings.NewReader(form.Encode()))
		if err != nil {
			return backoff.Permanent(&SubscriptionError{HubURL: hubURL, Err: err})
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", s.userAgent)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return &SubscriptionError{HubURL: hubURL, Err: err}
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		hubErr := &SubscriptionError{HubURL: hubURL, Status: resp.StatusCode}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return backoff.Permanent(hubErr)
		}
		return hubErr
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = 15 * time.Second

	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}

// Subscriptions returns copies of all known subscriptions.
func (s *Subscriber) Subscriptions() []Subscription {
	return s.store.All()
}

func (s *Subscriber) Subscription(topic string) (Subscription, bool) {
	return s.store.Get(topic)
}

func (s *Subscriber) VerifiedCount() int {
	count := 0
	for _, sub := range s.store.All() {
		if sub.Verified {
			count++
		}
	}
	return count
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
