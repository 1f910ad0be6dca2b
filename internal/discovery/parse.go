package discovery

import (
	"regexp"
	"strings"

	"github.com/sells-group/leadscout/internal/model"
)

const maxSnippet = 300

var (
	individualRe   = regexp.MustCompile(`(?i)linkedin\.com/in/([a-z0-9_-]+)`)
	organizationRe = regexp.MustCompile(`(?i)linkedin\.com/company/([a-z0-9_-]+)`)
)

// systemPages are LinkedIn slugs that never identify a person or organization.
var systemPages = map[string]bool{
	"login":         true,
	"signup":        true,
	"jobs":          true,
	"feed":          true,
	"mynetwork":     true,
	"messaging":     true,
	"notifications": true,
	"learning":      true,
	"pulse":         true,
	"posts":         true,
}

// ParseURL converts a search hit into a stub. It reports false for
// non-LinkedIn URLs and LinkedIn system pages.
func ParseURL(rawURL, title, snippet string) (model.Stub, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return model.Stub{}, false
	}

	var stub model.Stub
	if m := individualRe.FindStringSubmatch(rawURL); m != nil {
		slug := strings.ToLower(m[1])
		if systemPages[slug] {
			return model.Stub{}, false
		}
		stub.Kind = model.KindIndividual
		stub.URL = "https://www.linkedin.com/in/" + slug
	} else if m := organizationRe.FindStringSubmatch(rawURL); m != nil {
		slug := strings.ToLower(m[1])
		if systemPages[slug] {
			return model.Stub{}, false
		}
		stub.Kind = model.KindOrganization
		stub.URL = "https://www.linkedin.com/company/" + slug
	} else {
		return model.Stub{}, false
	}

	stub.Name, stub.Headline, stub.Organization = ParseTitle(title)
	stub.Snippet = truncate(snippet, maxSnippet)
	return stub, true
}

// ParseTitle splits a result title of the form
// "Name - Headline - Organization | LinkedIn". Segments past the third are
// dropped.
func ParseTitle(title string) (name, headline, organization string) {
	t := strings.ReplaceAll(title, " | LinkedIn", "")
	t = strings.ReplaceAll(t, "| LinkedIn", "")
	t = strings.TrimSpace(t)
	if t == "" {
		return "", "", ""
	}

	parts := strings.Split(t, " - ")
	parts = parts[:min(len(parts), 3)]
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	name = parts[0]
	if len(parts) > 1 {
		headline = parts[1]
	}
	if len(parts) > 2 {
		organization = parts[2]
	}
	return name, headline, organization
}

// NormalizeURL reduces a profile URL to the key used for seen-set lookups.
func NormalizeURL(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, "/")
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	return s
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
