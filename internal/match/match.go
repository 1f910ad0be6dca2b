// Package match pairs enriched records with the discovery stubs they came from.
package match

import (
	"regexp"
	"strings"

	"github.com/sells-group/leadscout/internal/model"
)

var (
	individualKeyRe   = regexp.MustCompile(`linkedin\.com/in/([a-z0-9_-]+)`)
	organizationKeyRe = regexp.MustCompile(`linkedin\.com/company/([a-z0-9_-]+)`)
)

// rawURLKeys are the item fields providers use for the page URL.
var rawURLKeys = []string{"linkedinUrl", "url", "profileUrl", "profile_url", "linkedInUrl", "companyUrl"}

// Key reduces a LinkedIn URL to "in/<slug>" or "company/<slug>". Other
// strings are returned lowercased and trimmed.
func Key(u string) string {
	u = strings.TrimRight(strings.ToLower(strings.TrimSpace(u)), "/")
	if m := individualKeyRe.FindStringSubmatch(u); m != nil {
		return "in/" + m[1]
	}
	if m := organizationKeyRe.FindStringSubmatch(u); m != nil {
		return "company/" + m[1]
	}
	return u
}

// Match returns one record per stub, in stub order. Stubs with an enriched
// counterpart get its detail; the rest are backfilled from the stub alone.
func Match(stubs []model.Stub, records []model.Record) []model.Record {
	index := make(map[string]model.Record, len(records))
	for _, r := range records {
		for _, u := range urlCandidates(r) {
			if k := Key(u); k != "" {
				index[k] = r
				break
			}
		}
	}
	for _, r := range records {
		if id := strings.ToLower(strings.TrimSpace(r.PublicIdentifier)); id != "" {
			k := "in/" + id
			if _, ok := index[k]; !ok {
				index[k] = r
			}
		}
	}

	out := make([]model.Record, 0, len(stubs))
	for _, s := range stubs {
		if r, ok := index[Key(s.URL)]; ok {
			out = append(out, merge(s, r))
		} else {
			out = append(out, fallback(s))
		}
	}
	return out
}

func urlCandidates(r model.Record) []string {
	out := []string{r.ProfileURL}
	for _, k := range rawURLKeys {
		if s, ok := r.Raw[k].(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// merge lays non-empty enriched fields over the stub.
func merge(s model.Stub, r model.Record) model.Record {
	m := r
	m.URL = s.URL
	m.Kind = s.Kind
	m.Snippet = s.Snippet
	if r.Name == "" || r.Name == "Unknown" {
		m.Name = s.Name
	}
	if m.Headline == "" {
		m.Headline = s.Headline
	}
	if m.Organization == "" {
		m.Organization = s.Organization
	}
	if m.CurrentOrganization == "" {
		m.CurrentOrganization = s.Organization
	}
	if m.CurrentTitle == "" {
		m.CurrentTitle = s.Headline
	}
	m.State = model.StateEnriched
	return m
}

func fallback(s model.Stub) model.Record {
	return model.Record{
		Stub:                s,
		Biography:           s.Snippet,
		CurrentOrganization: s.Organization,
		CurrentTitle:        s.Headline,
		State:               model.StateFallbackOnly,
	}
}
