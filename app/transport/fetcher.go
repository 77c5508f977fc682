package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/lysyi3m/huntfeed/app/feed"
	"github.com/lysyi3m/huntfeed/app/parser"
)

// FetchError reports a network or HTTP failure reaching a feed.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("failed to fetch %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves and parses feeds over HTTP. Timeouts and TLS policy
// belong to the injected client; the fetcher only shapes requests and
// errors.
type Fetcher struct {
	httpClient *http.Client
	parser     *parser.AutoDetect
	userAgent  string
}

func NewFetcher(httpClient *http.Client, autoDetect *parser.AutoDetect, userAgent string) *Fetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if autoDetect == nil {
		autoDetect = parser.NewAutoDetect()
	}
	return &Fetcher{
		httpClient: httpClient,
		parser:     autoDetect,
		userAgent:  userAgent,
	}
}

// Fetch downloads and parses a feed, returning the snapshot together
// with the raw payload. The raw bytes are kept for hub discovery.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*feed.Snapshot, []byte, error) {
	raw, err := f.FetchRaw(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	snapshot, err := f.parser.Parse(raw, url)
	if err != nil {
		return nil, nil, err
	}

	return snapshot, raw, nil
}

// FetchRaw downloads the resource without parsing it.
func (f *Fetcher) FetchRaw(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: url, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	return data, nil
}
