package parser

import (
	"bytes"
	"cmp"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/huntfeed/app/feed"
)

// All XML/JSON dialects share the gofeed-backed normalization; the
// per-dialect types only differ in content sniffing and, for GeoRSS, in
// the extra fields they surface.

type normalizer struct {
	gofeedParser *gofeed.Parser
}

func newNormalizer() normalizer {
	return normalizer{gofeedParser: gofeed.NewParser()}
}

func (n normalizer) run(content []byte, sourceURL, format string) (*feed.Snapshot, error) {
	parsed, err := n.gofeedParser.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, &ParseError{Format: format, Err: err}
	}

	url := cmp.Or(sourceURL, parsed.FeedLink, parsed.Link)
	snapshot := feed.NewSnapshot(url, parsed.Title)

	for _, raw := range parsed.Items {
		item := n.normalizeItem(raw)
		if !item.Valid() {
			continue
		}
		snapshot.AddItem(item)
	}

	return snapshot, nil
}

func (n normalizer) normalizeItem(raw *gofeed.Item) feed.Item {
	item := feed.Item{
		ID:      cmp.Or(raw.GUID, raw.Link),
		Title:   raw.Title,
		Link:    raw.Link,
		Content: cmp.Or(raw.Content, raw.Description),
	}

	if raw.PublishedParsed != nil {
		item.PublishedAt = *raw.PublishedParsed
	} else if raw.UpdatedParsed != nil {
		item.PublishedAt = *raw.UpdatedParsed
	}

	if len(raw.Categories) > 0 {
		item.Category = raw.Categories[0]
	}

	// RSS 2.0 allows one enclosure per item; keep the first.
	if len(raw.Enclosures) > 0 && raw.Enclosures[0] != nil {
		item.Enclosure = raw.Enclosures[0].URL
	}

	extra := make(map[string]any)
	if len(raw.Categories) > 1 {
		extra["categories"] = append([]string(nil), raw.Categories...)
	}
	if authors := extractAuthors(raw); len(authors) > 0 {
		extra["authors"] = authors
	}
	if len(extra) > 0 {
		item.Extra = extra
	}

	return item
}

func extractAuthors(raw *gofeed.Item) []string {
	var authors []string
	for _, author := range raw.Authors {
		if author == nil {
			continue
		}
		name := strings.TrimSpace(author.Name)
		email := strings.TrimSpace(author.Email)
		switch {
		case name != "" && email != "":
			authors = append(authors, email+" ("+name+")")
		case name != "":
			authors = append(authors, name)
		case email != "":
			authors = append(authors, email)
		}
	}
	return authors
}

func sniff(content []byte, marker string) bool {
	return bytes.Contains(content, []byte(marker))
}

// RSS2Parser handles RSS 2.0 documents.
type RSS2Parser struct{ normalizer }

func NewRSS2Parser() *RSS2Parser {
	return &RSS2Parser{newNormalizer()}
}

func (p *RSS2Parser) Supports(content []byte) bool {
	return sniff(content, "<rss")
}

func (p *RSS2Parser) Parse(content []byte, sourceURL string) (*feed.Snapshot, error) {
	return p.run(content, sourceURL, "RSS 2.0")
}

// AtomParser handles Atom documents.
type AtomParser struct{ normalizer }

func NewAtomParser() *AtomParser {
	return &AtomParser{newNormalizer()}
}

func (p *AtomParser) Supports(content []byte) bool {
	return sniff(content, "<feed")
}

func (p *AtomParser) Parse(content []byte, sourceURL string) (*feed.Snapshot, error) {
	return p.run(content, sourceURL, "Atom")
}

// RDFParser handles RDF/RSS 1.0 documents.
type RDFParser struct{ normalizer }

func NewRDFParser() *RDFParser {
	return &RDFParser{newNormalizer()}
}

func (p *RDFParser) Supports(content []byte) bool {
	return sniff(content, "<rdf:RDF")
}

func (p *RDFParser) Parse(content []byte, sourceURL string) (*feed.Snapshot, error) {
	return p.run(content, sourceURL, "RDF/RSS 1.0")
}

// JSONFeedParser handles JSON Feed documents.
type JSONFeedParser struct{ normalizer }

func NewJSONFeedParser() *JSONFeedParser {
	return &JSONFeedParser{newNormalizer()}
}

func (p *JSONFeedParser) Supports(content []byte) bool {
	trimmed := bytes.TrimLeft(content, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte("{")) && sniff(content, "jsonfeed.org/version")
}

func (p *JSONFeedParser) Parse(content []byte, sourceURL string) (*feed.Snapshot, error) {
	return p.run(content, sourceURL, "JSON Feed")
}

// GeoRSSParser handles RSS documents carrying the georss namespace and
// lifts point coordinates into the item extras under "geo".
type GeoRSSParser struct{ normalizer }

func NewGeoRSSParser() *GeoRSSParser {
	return &GeoRSSParser{newNormalizer()}
}

func (p *GeoRSSParser) Supports(content []byte) bool {
	return sniff(content, "georss")
}

func (p *GeoRSSParser) Parse(content []byte, sourceURL string) (*feed.Snapshot, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, &ParseError{Format: "GeoRSS", Err: err}
	}

	url := cmp.Or(sourceURL, parsed.FeedLink, parsed.Link)
	snapshot := feed.NewSnapshot(url, parsed.Title)

	for _, raw := range parsed.Items {
		item := p.normalizeItem(raw)
		if !item.Valid() {
			continue
		}
		if lat, long, ok := geoPoint(raw); ok {
			if item.Extra == nil {
				item.Extra = make(map[string]any)
			}
			item.Extra["geo"] = map[string]any{"lat": lat, "long": long}
		}
		snapshot.AddItem(item)
	}

	return snapshot, nil
}

func geoPoint(raw *gofeed.Item) (lat, long float64, ok bool) {
	exts, found := raw.Extensions["georss"]
	if !found {
		return 0, 0, false
	}
	points, found := exts["point"]
	if !found || len(points) == 0 {
		return 0, 0, false
	}
	fields := strings.Fields(points[0].Value)
	if len(fields) != 2 {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(fields[0], 64)
	long, errLong := strconv.ParseFloat(fields[1], 64)
	if errLat != nil || errLong != nil {
		return 0, 0, false
	}
	return lat, long, true
}
