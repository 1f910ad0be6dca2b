// Package classify assigns personas, contact signals and outreach tiers
// to records that survived the hard filter cascade.
package classify

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/metrics"
	"github.com/sells-group/leadscout/internal/model"
)

// Classifier produces a persona verdict for one record.
type Classifier interface {
	Classify(ctx context.Context, rec model.Record) (model.Classification, error)
}

// Oracle is a text-in, text-out language model. pkg/gemini and
// pkg/anthropic both satisfy it.
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Chain tries a primary classifier and falls back on any failure.
type Chain struct {
	primary  Classifier
	fallback Classifier
	log      *zap.Logger
}

// NewChain builds a Chain. A nil primary means no oracle credential is
// configured and every record goes straight to the fallback.
func NewChain(primary, fallback Classifier) *Chain {
	return &Chain{
		primary:  primary,
		fallback: fallback,
		log:      zap.L().With(zap.String("component", "classify")),
	}
}

// Classify implements Classifier. It only returns an error when there is
// no fallback.
func (c *Chain) Classify(ctx context.Context, rec model.Record) (model.Classification, error) {
	if c.primary != nil {
		cls, err := c.primary.Classify(ctx, rec)
		if err == nil {
			metrics.ObserveClassification(cls.Strategy)
			return cls, nil
		}
		if c.fallback == nil {
			return model.Classification{}, eris.Wrap(err, "classify: primary failed without fallback")
		}
		c.log.Warn("primary classifier failed, using fallback",
			zap.String("url", rec.URL),
			zap.Error(err),
		)
	}
	if c.fallback == nil {
		return model.Classification{}, eris.New("classify: no classifier configured")
	}

	cls, err := c.fallback.Classify(ctx, rec)
	if err != nil {
		return model.Classification{}, eris.Wrap(err, "classify: fallback")
	}
	metrics.ObserveClassification(cls.Strategy)
	return cls, nil
}
