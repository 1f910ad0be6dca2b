package classify

import (
	"context"
	"strings"

	"github.com/sells-group/leadscout/internal/filter"
	"github.com/sells-group/leadscout/internal/model"
)

// StrategyHeuristic labels classifications made by keyword rules.
const StrategyHeuristic = "heuristic"

var (
	schoolLeaderTitles = []string{"principal", "vice principal", "headmaster", "director"}
	founderTitles      = []string{"founder", "ceo", "co-founder"}
	edtechSignals      = []string{"education", "edtech", "learn", "school", "academy"}
)

// HeuristicClassifier applies deterministic keyword rules. Every verdict
// it returns is marked relevant.
type HeuristicClassifier struct {
	institute []string
}

// NewHeuristic builds a HeuristicClassifier. A nil taxonomy uses the
// built-in institute keywords.
func NewHeuristic(tax *filter.Taxonomy) *HeuristicClassifier {
	if tax == nil {
		tax = filter.DefaultTaxonomy()
	}
	return &HeuristicClassifier{institute: tax.Normalized().Institute}
}

// Classify implements Classifier. It never fails.
func (h *HeuristicClassifier) Classify(_ context.Context, rec model.Record) (model.Classification, error) {
	headline := strings.ToLower(rec.Headline)
	company := strings.ToLower(rec.DisplayOrganization())

	cls := model.Classification{IsRelevant: true, Strategy: StrategyHeuristic}
	switch {
	case filter.ContainsAny(company, h.institute):
		cls.Persona = model.PersonaCoachingOwner
		cls.Rationale = "institute keyword in organization"
	case filter.ContainsAny(headline, schoolLeaderTitles):
		cls.Persona = model.PersonaInstituteLeader
		cls.Rationale = "school leadership title"
	case filter.ContainsAny(headline, founderTitles) && filter.ContainsAny(headline+company, edtechSignals):
		cls.Persona = model.PersonaEdTechDecision
		cls.Rationale = "education founder"
	default:
		cls.Persona = model.PersonaIndividualTutor
		cls.Rationale = "default"
	}
	return cls, nil
}
