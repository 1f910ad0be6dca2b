// Package seed loads the leads of earlier runs so a new run can skip them.
package seed

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Prior is the set of identifiers a run should treat as already seen.
type Prior struct {
	URLs  []string
	Names []string
}

// Merge appends other's entries. Duplicates are left for the seen-set to fold.
func (p Prior) Merge(other Prior) Prior {
	return Prior{
		URLs:  append(append([]string(nil), p.URLs...), other.URLs...),
		Names: append(append([]string(nil), p.Names...), other.Names...),
	}
}

// SeenSource lists every URL recorded by earlier runs.
type SeenSource interface {
	SeenURLs(ctx context.Context) ([]string, error)
}

// FromStore reads the persisted seen-set.
func FromStore(ctx context.Context, src SeenSource) (Prior, error) {
	urls, err := src.SeenURLs(ctx)
	if err != nil {
		return Prior{}, eris.Wrap(err, "seed: read seen urls")
	}
	return Prior{URLs: urls}, nil
}

var nameHeaders = []string{"name", "full name", "full_name", "fullname"}

// urlColumn picks the profile URL column: a header naming both "linkedin"
// and "url" wins, then the first header containing "url" or "link".
func urlColumn(header []string) int {
	for i, h := range header {
		h = strings.ToLower(h)
		if strings.Contains(h, "linkedin") && strings.Contains(h, "url") {
			return i
		}
	}
	for i, h := range header {
		h = strings.ToLower(h)
		if strings.Contains(h, "url") || strings.Contains(h, "link") {
			return i
		}
	}
	return -1
}

func nameColumn(header []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, n := range nameHeaders {
			if h == n {
				return i
			}
		}
	}
	return -1
}

// fromTable extracts URLs and names from a header row plus data rows.
// A table without a URL column still contributes names.
func fromTable(source string, header []string, rows [][]string) Prior {
	log := zap.L().With(zap.String("component", "seed"), zap.String("source", source))

	urlIdx, nameIdx := urlColumn(header), nameColumn(header)
	if urlIdx < 0 {
		log.Warn("seed: no URL or link column, URL dedup skipped", zap.Strings("header", header))
	}

	var p Prior
	for _, row := range rows {
		if v := cell(row, urlIdx); v != "" {
			p.URLs = append(p.URLs, v)
		}
		if v := cell(row, nameIdx); v != "" {
			p.Names = append(p.Names, v)
		}
	}
	log.Info("seed: loaded prior leads", zap.Int("urls", len(p.URLs)), zap.Int("names", len(p.Names)))
	return p
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
