package sink

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/pkg/salesforce"
)

// SalesforceSink inserts leads as Lead sObjects. Profiles already pushed
// by an earlier run are skipped.
type SalesforceSink struct {
	client salesforce.Client
}

// NewSalesforceSink wraps a Salesforce client.
func NewSalesforceSink(c salesforce.Client) *SalesforceSink {
	return &SalesforceSink{client: c}
}

func (s *SalesforceSink) Name() string { return "salesforce" }

func (s *SalesforceSink) Deliver(ctx context.Context, leads []model.Lead) error {
	if len(leads) == 0 {
		return nil
	}
	log := zap.L().With(zap.String("component", "sink.salesforce"))

	websites := make([]string, len(leads))
	for i, l := range leads {
		websites[i] = l.URL
	}
	existing, err := salesforce.ExistingWebsites(ctx, s.client, websites)
	if err != nil {
		return err
	}

	var fresh []salesforce.Lead
	for _, l := range leads {
		if existing[l.URL] {
			continue
		}
		fresh = append(fresh, toSalesforceLead(l))
	}
	if len(fresh) == 0 {
		log.Info("sink: all leads already in salesforce", zap.Int("leads", len(leads)))
		return nil
	}

	results, err := salesforce.InsertLeads(ctx, s.client, fresh)
	if err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
			log.Warn("sink: salesforce insert rejected", zap.Strings("errors", r.Errors))
		}
	}
	log.Info("sink: salesforce insert",
		zap.Int("inserted", len(results)-failed),
		zap.Int("skipped", len(leads)-len(fresh)),
	)
	if failed > 0 {
		return eris.Errorf("sink: salesforce: %d of %d inserts failed", failed, len(fresh))
	}
	return nil
}

func toSalesforceLead(l model.Lead) salesforce.Lead {
	first, last := salesforce.SplitName(l.Name)
	if last == "" {
		last = "Unknown"
	}
	company := l.DisplayOrganization()
	if company == "" {
		company = "Independent"
	}
	title := l.CurrentTitle
	if title == "" {
		title = l.Headline
	}

	desc := []string{
		fmt.Sprintf("Persona: %s", l.Classification.Persona),
		fmt.Sprintf("Tier: %s", l.Tier),
		fmt.Sprintf("Contact confidence: %s", l.ContactConfidence),
	}
	if l.Summary != "" {
		desc = append(desc, l.Summary)
	}
	if l.Contacts.Email != "" {
		desc = append(desc, "Email: "+l.Contacts.Email)
	}
	if l.Contacts.Phone != "" {
		desc = append(desc, "Phone: "+l.Contacts.Phone)
	}

	return salesforce.Lead{
		FirstName:   first,
		LastName:    last,
		Company:     company,
		Title:       title,
		Website:     l.URL,
		Rating:      rating(l.Tier),
		Description: strings.Join(desc, "\n"),
		LeadSource:  salesforce.LeadSource,
	}
}

func rating(t model.Tier) string {
	switch t {
	case model.TierA:
		return "Hot"
	case model.TierB:
		return "Warm"
	default:
		return "Cold"
	}
}
