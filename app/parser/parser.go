package parser

import (
	"github.com/lysyi3m/huntfeed/app/feed"
)

// AutoDetect dispatches to the first adapter whose Supports predicate
// matches the content. Order matters: more specific formats are tried
// before the generic ones.
type AutoDetect struct {
	parsers []Parser
}

func NewAutoDetect(parsers ...Parser) *AutoDetect {
	if len(parsers) == 0 {
		parsers = []Parser{
			NewGeoRSSParser(),
			NewRSS2Parser(),
			NewAtomParser(),
			NewJSONFeedParser(),
			NewRDFParser(),
		}
	}
	return &AutoDetect{parsers: parsers}
}

func (a *AutoDetect) AddParser(p Parser) {
	a.parsers = append(a.parsers, p)
}

func (a *AutoDetect) Supports(content []byte) bool {
	for _, p := range a.parsers {
		if p.Supports(content) {
			return true
		}
	}
	return false
}

func (a *AutoDetect) Parse(content []byte, sourceURL string) (*feed.Snapshot, error) {
	for _, p := range a.parsers {
		if p.Supports(content) {
			return p.Parse(content, sourceURL)
		}
	}
	return nil, &UnsupportedFormatError{}
}
