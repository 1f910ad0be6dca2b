package classify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/metrics"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/pace"
)

// Scorer turns a filtered record into a lead: classify, drop irrelevant,
// extract contacts, tier, and summarize tier A/B leads.
type Scorer struct {
	classifier Classifier
	summarizer *Summarizer
	pacer      *pace.Pacer
	now        func() time.Time
	log        *zap.Logger
}

// NewScorer builds a Scorer. The pacer spaces out oracle calls; pass
// pace.None() when no oracle is configured.
func NewScorer(c Classifier, s *Summarizer, pacer *pace.Pacer) *Scorer {
	return &Scorer{
		classifier: c,
		summarizer: s,
		pacer:      pacer,
		now:        time.Now,
		log:        zap.L().With(zap.String("component", "scorer")),
	}
}

// Score processes one record. Budget is the number of classification
// calls still available; the summary is only written when one remains
// after classification. Calls reports how many were used.
func (s *Scorer) Score(ctx context.Context, rec model.Record, budget int) (lead model.Lead, accepted bool, calls int) {
	if budget <= 0 {
		return model.Lead{}, false, 0
	}
	if err := s.pacer.Wait(ctx); err != nil {
		return model.Lead{}, false, 0
	}

	cls, err := s.classifier.Classify(ctx, rec)
	calls = 1
	if err != nil {
		s.log.Warn("classification failed", zap.String("url", rec.URL), zap.Error(err))
		return model.Lead{}, false, calls
	}
	if !cls.IsRelevant {
		s.log.Debug("dropped irrelevant record",
			zap.String("url", rec.URL),
			zap.String("persona", cls.Persona),
			zap.String("reason", cls.Rationale),
		)
		return model.Lead{}, false, calls
	}

	contacts := ExtractContacts(rec)
	tier := AssignTier(cls.IsRelevant, contacts.HasChannel(), cls.Seniority, cls.Persona)

	lead = model.Lead{
		Record:            rec,
		Classification:    cls,
		Contacts:          contacts,
		ContactConfidence: ContactConfidence(contacts),
		Tier:              tier,
		Summary:           rec.Headline,
		CreatedAt:         s.now().UTC(),
	}

	if (tier == model.TierA || tier == model.TierB) && budget-calls > 0 {
		if err := s.pacer.Wait(ctx); err == nil {
			lead.Summary = s.summarizer.Summarize(ctx, rec, cls)
			calls++
		}
	}

	metrics.ObserveLead(string(tier))
	s.log.Info("lead accepted",
		zap.String("name", rec.Name),
		zap.String("persona", cls.Persona),
		zap.String("tier", string(tier)),
		zap.String("strategy", cls.Strategy),
	)
	return lead, true, calls
}
