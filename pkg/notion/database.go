package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// QueryAll fetches all pages from a Notion database, following cursors.
// Rate limiting is enforced by the Client.
func QueryAll(ctx context.Context, c Client, dbID string, filter *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{StartCursor: cursor}
		if filter != nil {
			req.Filter = filter.Filter
			req.Sorts = filter.Sorts
			req.PageSize = filter.PageSize
		}

		resp, err := c.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}
		all = append(all, resp.Results...)

		if !resp.HasMore || resp.NextCursor == "" {
			return all, nil
		}
		cursor = resp.NextCursor
	}
}

// CreateInDatabase creates one page in dbID with the given properties.
func CreateInDatabase(ctx context.Context, c Client, dbID string, props notionapi.Properties) (*notionapi.Page, error) {
	page, err := c.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
	})
	if err != nil {
		return nil, eris.Wrap(err, "notion: create page in "+dbID)
	}
	return page, nil
}

// Title builds a title property.
func Title(v string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Type:  notionapi.PropertyTypeTitle,
		Title: []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: v}}},
	}
}

// RichText builds a rich_text property. Notion caps text blocks at 2000 chars.
func RichText(v string) notionapi.RichTextProperty {
	if len(v) > 2000 {
		v = v[:2000]
	}
	return notionapi.RichTextProperty{
		Type:     notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: v}}},
	}
}

// URL builds a url property.
func URL(v string) notionapi.URLProperty {
	return notionapi.URLProperty{Type: notionapi.PropertyTypeURL, URL: v}
}

// Select builds a select property.
func Select(v string) notionapi.SelectProperty {
	return notionapi.SelectProperty{Type: notionapi.PropertyTypeSelect, Select: notionapi.Option{Name: v}}
}

// Number builds a number property.
func Number(v float64) notionapi.NumberProperty {
	return notionapi.NumberProperty{Type: notionapi.PropertyTypeNumber, Number: v}
}

// PlainText reads a title, rich_text or url property as trimmed text.
// Missing or unsupported properties yield "".
func PlainText(page notionapi.Page, name string) string {
	prop, ok := page.Properties[name]
	if !ok {
		return ""
	}
	var b strings.Builder
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		for _, rt := range p.Title {
			b.WriteString(rt.PlainText)
		}
	case *notionapi.RichTextProperty:
		for _, rt := range p.RichText {
			b.WriteString(rt.PlainText)
		}
	case *notionapi.URLProperty:
		b.WriteString(p.URL)
	}
	return strings.TrimSpace(b.String())
}
