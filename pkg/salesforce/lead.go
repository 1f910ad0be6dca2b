package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// maxBatchSize is the Salesforce Collections API limit per request.
const maxBatchSize = 200

// LeadSource tags every Lead this tool creates.
const LeadSource = "LinkedIn"

// Lead is the subset of the Salesforce Lead sObject we read and write.
// The profile URL is stored in Website.
type Lead struct {
	ID          string `json:"Id,omitempty" salesforce:"Id"`
	FirstName   string `json:"FirstName,omitempty" salesforce:"FirstName"`
	LastName    string `json:"LastName" salesforce:"LastName"`
	Company     string `json:"Company" salesforce:"Company"`
	Title       string `json:"Title,omitempty" salesforce:"Title"`
	Website     string `json:"Website,omitempty" salesforce:"Website"`
	Rating      string `json:"Rating,omitempty" salesforce:"Rating"`
	Description string `json:"Description,omitempty" salesforce:"Description"`
	LeadSource  string `json:"LeadSource,omitempty" salesforce:"LeadSource"`
}

// Fields converts a Lead to the field map CreateLeads expects.
func (l Lead) Fields() map[string]any {
	m := map[string]any{
		"LastName":   l.LastName,
		"Company":    l.Company,
		"LeadSource": l.LeadSource,
	}
	if l.FirstName != "" {
		m["FirstName"] = l.FirstName
	}
	if l.Title != "" {
		m["Title"] = l.Title
	}
	if l.Website != "" {
		m["Website"] = l.Website
	}
	if l.Rating != "" {
		m["Rating"] = l.Rating
	}
	if l.Description != "" {
		m["Description"] = l.Description
	}
	return m
}

// InsertLeads creates leads in batches of maxBatchSize.
func InsertLeads(ctx context.Context, c Client, leads []Lead) ([]CollectionResult, error) {
	if len(leads) == 0 {
		return nil, nil
	}

	var all []CollectionResult
	for start := 0; start < len(leads); start += maxBatchSize {
		end := min(start+maxBatchSize, len(leads))

		records := make([]map[string]any, 0, end-start)
		for _, l := range leads[start:end] {
			if l.LastName == "" || l.Company == "" {
				return all, eris.Errorf("salesforce: lead %q requires LastName and Company", l.Website)
			}
			records = append(records, l.Fields())
		}

		results, err := c.CreateLeads(ctx, records)
		if err != nil {
			return all, eris.Wrapf(err, "salesforce: insert leads batch %d-%d", start, end)
		}
		all = append(all, results...)
	}
	return all, nil
}

// ExistingWebsites returns which of the given websites already belong to a
// Lead created by this tool.
func ExistingWebsites(ctx context.Context, c Client, websites []string) (map[string]bool, error) {
	found := make(map[string]bool)
	for start := 0; start < len(websites); start += maxBatchSize {
		end := min(start+maxBatchSize, len(websites))

		quoted := make([]string, 0, end-start)
		for _, w := range websites[start:end] {
			quoted = append(quoted, "'"+escapeSoql(w)+"'")
		}
		soql := fmt.Sprintf(
			"SELECT Id, Website FROM Lead WHERE LeadSource = '%s' AND Website IN (%s)",
			LeadSource, strings.Join(quoted, ", "),
		)

		leads, err := c.QueryLeads(ctx, soql)
		if err != nil {
			return nil, eris.Wrap(err, "salesforce: find existing leads")
		}
		for _, l := range leads {
			found[l.Website] = true
		}
	}
	return found, nil
}

// SplitName splits a display name into first and last name. Single-word
// names become the last name, which Salesforce requires.
func SplitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
