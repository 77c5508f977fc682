package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const fetcherSample = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Served Feed</title>
    <item>
      <guid>srv-1</guid>
      <title>Served Item</title>
      <link>https://example.com/1</link>
    </item>
  </channel>
</rss>`

func TestFetcher_Fetch(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Write([]byte(fetcherSample))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), nil, "huntfeed-test/1.0")
	snapshot, raw, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Unexpected fetch error: %v", err)
	}

	if gotUserAgent != "huntfeed-test/1.0" {
		t.Errorf("Expected configured user agent, got '%s'", gotUserAgent)
	}
	if snapshot.Len() != 1 {
		t.Errorf("Expected 1 parsed item, got %d", snapshot.Len())
	}
	if snapshot.URL != server.URL {
		t.Errorf("Expected source URL on the snapshot, got '%s'", snapshot.URL)
	}
	if string(raw) != fetcherSample {
		t.Error("Expected the raw payload passed through unmodified")
	}
}

func TestFetcher_Fetch_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), nil, "huntfeed-test/1.0")
	_, _, err := fetcher.Fetch(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for non-200 response")
	}

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected FetchError, got %T", err)
	}
	if fetchErr.Status != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", fetchErr.Status)
	}
}

func TestFetcher_Fetch_UnparseableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not a feed"))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), nil, "huntfeed-test/1.0")
	if _, _, err := fetcher.Fetch(context.Background(), server.URL); err == nil {
		t.Error("Expected error for unparseable content")
	}
}

func TestFetcher_FetchRaw_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewFetcher(server.Client(), nil, "huntfeed-test/1.0")
	if _, err := fetcher.FetchRaw(ctx, server.URL); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
