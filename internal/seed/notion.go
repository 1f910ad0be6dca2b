package seed

import (
	"context"
	"sort"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/pkg/notion"
)

// LoadNotion reads prior leads from a Notion database. The URL property is
// chosen by the same header rules as CSV; names come from a name-like
// property or, failing that, the page title.
func LoadNotion(ctx context.Context, c notion.Client, dbID string) (Prior, error) {
	pages, err := notion.QueryAll(ctx, c, dbID, nil)
	if err != nil {
		return Prior{}, eris.Wrap(err, "seed: query notion")
	}

	var p Prior
	for _, page := range pages {
		keys := make([]string, 0, len(page.Properties))
		for k := range page.Properties {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		if i := urlColumn(keys); i >= 0 {
			if v := notion.PlainText(page, keys[i]); v != "" {
				p.URLs = append(p.URLs, v)
			}
		}
		if v := pageName(page, keys); v != "" {
			p.Names = append(p.Names, v)
		}
	}
	return p, nil
}

func pageName(page notionapi.Page, keys []string) string {
	if i := nameColumn(keys); i >= 0 {
		return notion.PlainText(page, keys[i])
	}
	for _, k := range keys {
		if _, ok := page.Properties[k].(*notionapi.TitleProperty); ok {
			return notion.PlainText(page, k)
		}
	}
	return ""
}
