package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/net/html"
)

// Strategy selects how an item fingerprint is derived. Fingerprints from
// different strategies are never comparable to each other.
type Strategy string

const (
	// StrategyDefault hashes id and link, the exact-identity key used
	// for deduplication across repeated fetches of the same source.
	StrategyDefault Strategy = "default"
	// StrategyContent hashes title, markup-stripped content and the
	// publication day, correlating the same story republished under a
	// different id or link.
	StrategyContent Strategy = "content"
	// StrategyFuzzy hashes title and publication day only. Loosest
	// match, meant for near-duplicate grouping, not primary dedup.
	StrategyFuzzy Strategy = "fuzzy"
)

const dayFormat = "2006-01-02"

// Fingerprint returns the hex sha256 digest of the item under the given
// strategy. Unknown strategies fall back to the default.
func (i Item) Fingerprint(strategy Strategy) string {
	var data string
	switch strategy {
	case StrategyContent:
		data = strings.TrimSpace(strings.ToLower(i.Title) + "|" +
			strings.ToLower(StripMarkup(i.Content)) + "|" +
			i.PublishedAt.Format(dayFormat))
	case StrategyFuzzy:
		data = strings.TrimSpace(strings.ToLower(i.Title) + "|" +
			i.PublishedAt.Format(dayFormat))
	default:
		data = strings.TrimSpace(i.ID + "|" + i.Link)
	}

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// Equals reports exact identity: equal default fingerprints.
func (i Item) Equals(other Item) bool {
	return i.Fingerprint(StrategyDefault) == other.Fingerprint(StrategyDefault)
}

// IsSimilar reports content-level similarity across sources.
func (i Item) IsSimilar(other Item) bool {
	return i.Fingerprint(StrategyContent) == other.Fingerprint(StrategyContent)
}

// StripMarkup reduces an HTML fragment to its text content with entities
// decoded. Plain text passes through unchanged.
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}
