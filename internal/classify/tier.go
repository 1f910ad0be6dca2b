package classify

import (
	"strings"

	"github.com/sells-group/leadscout/internal/filter"
	"github.com/sells-group/leadscout/internal/model"
)

var (
	decisionMakerSeniority = []string{"founder", "owner", "principal", "director", "c-level"}
	seniorSeniority        = []string{"founder", "principal"}
	tutorPersonas          = []string{model.PersonaIndividualTutor, model.PersonaTeacherShorthand}
)

// AssignTier buckets a lead by outreach priority. First match wins:
//
//	D  not relevant
//	A  contact channel and decision-maker seniority
//	B  contact channel, or founder/principal seniority
//	C  tutor persona
//	D  otherwise
func AssignTier(relevant, hasContact bool, seniority, persona string) model.Tier {
	if !relevant {
		return model.TierD
	}

	s := strings.ToLower(seniority)
	if hasContact && filter.ContainsAny(s, decisionMakerSeniority) {
		return model.TierA
	}
	if hasContact || filter.ContainsAny(s, seniorSeniority) {
		return model.TierB
	}
	for _, p := range tutorPersonas {
		if strings.EqualFold(strings.TrimSpace(persona), p) {
			return model.TierC
		}
	}
	return model.TierD
}

