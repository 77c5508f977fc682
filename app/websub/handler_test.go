package websub

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/huntfeed/app/feed"
)

func newTestRouter(t *testing.T, requireSignature bool) (*gin.Engine, *Subscriber, *httptest.Server, *[]feed.Item) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hubServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(hubServer.Close)

	subscriber := NewSubscriber(hubServer.Client(), nil, NewMemoryStore(),
		"https://subscriber.example/websub/callback", 3600, requireSignature, "test-agent")

	var delivered []feed.Item
	handler := NewHandler(subscriber, func(topic string, items []feed.Item) {
		delivered = append(delivered, items...)
	})

	r := gin.New()
	handler.Register(r, "/websub/callback")
	return r, subscriber, hubServer, &delivered
}

func TestHandler_Verify_EchoesChallenge(t *testing.T) {
	r, subscriber, hubServer, _ := newTestRouter(t, false)

	topic := "https://pub.example/feed.xml"
	if err := subscriber.Subscribe(context.Background(), topic, hubServer.URL, nil); err != nil {
		t.Fatal(err)
	}

	query := url.Values{
		"hub.mode":      {"subscribe"},
		"hub.topic":     {topic},
		"hub.challenge": {"echo-me-back"},
	}
	req := httptest.NewRequest(http.MethodGet, "/websub/callback?"+query.Encode(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Body.String() != "echo-me-back" {
		t.Errorf("Expected challenge echoed verbatim, got '%s'", w.Body.String())
	}
}

func TestHandler_Verify_MissingParameters(t *testing.T) {
	r, _, _, _ := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/websub/callback?hub.topic=https://x.example/feed", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing challenge, got %d", w.Code)
	}
}

func TestHandler_Verify_UnknownTopic(t *testing.T) {
	r, _, _, _ := newTestRouter(t, false)

	query := url.Values{
		"hub.topic":     {"https://stranger.example/feed.xml"},
		"hub.challenge": {"challenge"},
	}
	req := httptest.NewRequest(http.MethodGet, "/websub/callback?"+query.Encode(), nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for unknown topic, got %d", w.Code)
	}
}

func TestHandler_Notify_DeliversItems(t *testing.T) {
	r, subscriber, hubServer, delivered := newTestRouter(t, true)

	topic := "https://pub.example/feed.xml"
	if err := subscriber.Subscribe(context.Background(), topic, hubServer.URL, nil); err != nil {
		t.Fatal(err)
	}
	stored, _ := subscriber.Subscription(topic)

	mac := hmac.New(sha1.New, []byte(stored.Secret))
	mac.Write([]byte(notificationBody))

	req := httptest.NewRequest(http.MethodPost, "/websub/callback", strings.NewReader(notificationBody))
	req.Header.Set("X-Hub-Signature", "sha1="+hex.EncodeToString(mac.Sum(nil)))
	req.Header.Set("Link", "<"+topic+`>; rel="self"`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", w.Code)
	}
	if len(*delivered) != 1 || (*delivered)[0].ID != "push-1" {
		t.Errorf("Expected the pushed item delivered to the callback, got %d items", len(*delivered))
	}
}

func TestHandler_Notify_BadSignature(t *testing.T) {
	r, subscriber, hubServer, delivered := newTestRouter(t, true)

	topic := "https://pub.example/feed.xml"
	if err := subscriber.Subscribe(context.Background(), topic, hubServer.URL, nil); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/websub/callback", strings.NewReader(notificationBody))
	req.Header.Set("X-Hub-Signature", "sha1=0000000000000000000000000000000000000000")
	req.Header.Set("Link", "<"+topic+`>; rel="self"`)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad signature, got %d", w.Code)
	}
	if len(*delivered) != 0 {
		t.Error("Rejected notification must not be delivered")
	}
}

func TestHandler_Notify_UnparseableBody(t *testing.T) {
	r, _, _, delivered := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodPost, "/websub/callback", strings.NewReader("not a feed"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unparseable content, got %d", w.Code)
	}
	if len(*delivered) != 0 {
		t.Error("Unparseable notification must not be delivered")
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	r, _, _, _ := newTestRouter(t, false)

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		req := httptest.NewRequest(method, "/websub/callback", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected 405 for %s, got %d", method, w.Code)
		}
	}
}
