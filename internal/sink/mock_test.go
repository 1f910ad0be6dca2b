package sink

import (
	"context"
	"strings"
	"sync"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/pkg/salesforce"
)

// --- Salesforce fake ---

type fakeSalesforce struct {
	existing []string
	rejected map[string]bool
	queryErr error

	queries  []string
	inserted []map[string]any
}

func (f *fakeSalesforce) QueryLeads(_ context.Context, soql string) ([]salesforce.Lead, error) {
	f.queries = append(f.queries, soql)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var leads []salesforce.Lead
	for _, w := range f.existing {
		if strings.Contains(soql, "'"+w+"'") {
			leads = append(leads, salesforce.Lead{ID: "00Q" + w, Website: w})
		}
	}
	return leads, nil
}

func (f *fakeSalesforce) CreateLeads(_ context.Context, records []map[string]any) ([]salesforce.CollectionResult, error) {
	f.inserted = append(f.inserted, records...)
	out := make([]salesforce.CollectionResult, len(records))
	for i, r := range records {
		if f.rejected[r["Website"].(string)] {
			out[i] = salesforce.CollectionResult{Errors: []string{"DUPLICATES_DETECTED"}}
			continue
		}
		out[i] = salesforce.CollectionResult{ID: "00Qnew", Success: true}
	}
	return out, nil
}

// --- Sink fake ---

type recordingSink struct {
	name string
	err  error

	mu    sync.Mutex
	count int
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Deliver(_ context.Context, leads []model.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count += len(leads)
	return r.err
}

func sampleLead(slug string, tier model.Tier) model.Lead {
	return model.Lead{
		Record: model.Record{
			Stub: model.Stub{
				URL:      "https://www.linkedin.com/in/" + slug,
				Kind:     model.KindIndividual,
				Name:     "Asha Rani Verma",
				Headline: "Founder at Sunrise Academy",
			},
			Location:            "Jaipur, India",
			Connections:         850,
			CurrentOrganization: "Sunrise Academy",
		},
		RunID: "run-1",
		Classification: model.Classification{
			Persona:  model.PersonaCoachingOwner,
			Subjects: []string{"Physics", "Maths"},
		},
		Contacts:          model.ContactBundle{Email: "asha@sunrise.in", Phone: "9876543210"},
		ContactConfidence: "High",
		Tier:              tier,
		Summary:           "Coaching Institute Owner based in Jaipur, India.",
	}
}
