// Package sink delivers accepted leads to files and external systems.
package sink

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadscout/internal/model"
)

// Sink receives the leads of a finished run.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, leads []model.Lead) error
}

// DeliverAll runs every sink concurrently and returns the first error.
// Sinks do not cancel each other.
func DeliverAll(ctx context.Context, sinks []Sink, leads []model.Lead) error {
	var g errgroup.Group
	for _, s := range sinks {
		g.Go(func() error {
			log := zap.L().With(zap.String("component", "sink"), zap.String("sink", s.Name()))
			if err := s.Deliver(ctx, leads); err != nil {
				log.Error("sink: delivery failed", zap.Error(err))
				return eris.Wrapf(err, "sink: %s", s.Name())
			}
			log.Info("sink: delivered", zap.Int("leads", len(leads)))
			return nil
		})
	}
	return g.Wait()
}

// JSONSink writes the leads as an indented JSON array.
type JSONSink struct {
	w io.Writer
}

// NewJSONSink writes to w.
func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{w: w}
}

func (s *JSONSink) Name() string { return "json" }

func (s *JSONSink) Deliver(_ context.Context, leads []model.Lead) error {
	if leads == nil {
		leads = []model.Lead{}
	}
	enc := json.NewEncoder(s.w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(leads), "sink: encode json")
}
