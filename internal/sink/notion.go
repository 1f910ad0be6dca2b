package sink

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/pkg/notion"
)

// NotionSink creates one page per lead in a Notion database.
type NotionSink struct {
	client notion.Client
	dbID   string
}

// NewNotionSink writes into dbID.
func NewNotionSink(c notion.Client, dbID string) *NotionSink {
	return &NotionSink{client: c, dbID: dbID}
}

func (s *NotionSink) Name() string { return "notion" }

// Deliver keeps going after a failed page and reports the failure count.
func (s *NotionSink) Deliver(ctx context.Context, leads []model.Lead) error {
	log := zap.L().With(zap.String("component", "sink.notion"))
	failed := 0
	for _, l := range leads {
		if ctx.Err() != nil {
			return eris.Wrap(ctx.Err(), "sink: notion canceled")
		}
		if _, err := notion.CreateInDatabase(ctx, s.client, s.dbID, leadProperties(l)); err != nil {
			failed++
			log.Warn("sink: notion page failed", zap.String("url", l.URL), zap.Error(err))
		}
	}
	if failed > 0 {
		return eris.Errorf("sink: notion: %d of %d pages failed", failed, len(leads))
	}
	return nil
}

func leadProperties(l model.Lead) notionapi.Properties {
	props := notionapi.Properties{
		"Name":               notion.Title(l.Name),
		"LinkedIn":           notion.URL(l.URL),
		"Headline":           notion.RichText(l.Headline),
		"Organization":       notion.RichText(l.DisplayOrganization()),
		"Location":           notion.RichText(l.Location),
		"Persona":            notion.Select(l.Classification.Persona),
		"Tier":               notion.Select(string(l.Tier)),
		"Contact Confidence": notion.Select(l.ContactConfidence),
		"Summary":            notion.RichText(l.Summary),
	}
	if subjects := strings.Join(l.Classification.Subjects, ", "); subjects != "" {
		props["Subjects"] = notion.RichText(subjects)
	}
	if l.Contacts.Email != "" {
		props["Email"] = notion.RichText(l.Contacts.Email)
	}
	if l.Contacts.Phone != "" {
		props["Phone"] = notion.RichText(l.Contacts.Phone)
	}
	if l.Connections > 0 {
		props["Connections"] = notion.Number(float64(l.Connections))
	}
	return props
}
