package pipeline

import (
	"github.com/sells-group/leadscout/internal/match"
	"github.com/sells-group/leadscout/internal/seed"
)

// SeenSet holds the identifiers already handled by this or earlier runs.
// URLs are keyed by match.Key; names by seed.NormalizeName.
type SeenSet struct {
	urls  map[string]struct{}
	names map[string]struct{}
}

// NewSeenSet returns a set seeded with prior URLs and names.
func NewSeenSet(urls, names []string) *SeenSet {
	s := &SeenSet{
		urls:  make(map[string]struct{}, len(urls)),
		names: make(map[string]struct{}, len(names)),
	}
	for _, u := range urls {
		s.AddURL(u)
	}
	for _, n := range names {
		s.AddName(n)
	}
	return s
}

// AddURL records a URL. Blank input is ignored.
func (s *SeenSet) AddURL(u string) {
	if k := match.Key(u); k != "" {
		s.urls[k] = struct{}{}
	}
}

// HasURL reports whether an equivalent URL was recorded.
func (s *SeenSet) HasURL(u string) bool {
	_, ok := s.urls[match.Key(u)]
	return ok
}

// AddName records a display name. Blank input is ignored.
func (s *SeenSet) AddName(name string) {
	if n := seed.NormalizeName(name); n != "" {
		s.names[n] = struct{}{}
	}
}

// HasName reports whether an equivalent name was recorded.
func (s *SeenSet) HasName(name string) bool {
	n := seed.NormalizeName(name)
	if n == "" {
		return false
	}
	_, ok := s.names[n]
	return ok
}

// Len returns the number of distinct URLs.
func (s *SeenSet) Len() int {
	return len(s.urls)
}
