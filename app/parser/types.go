package parser

import (
	"fmt"

	"github.com/lysyi3m/huntfeed/app/feed"
)

// Parser is the format-adapter contract: a pure predicate over raw
// content plus a pure parse into a normalized snapshot.
type Parser interface {
	Supports(content []byte) bool
	Parse(content []byte, sourceURL string) (*feed.Snapshot, error)
}

// ParseError reports a malformed payload for a detected format.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s feed: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// UnsupportedFormatError means no registered adapter matched the content.
type UnsupportedFormatError struct{}

func (e *UnsupportedFormatError) Error() string {
	return "unsupported feed format (supported: GeoRSS, RSS 2.0, Atom, JSON Feed, RDF/RSS 1.0)"
}
