package store

import (
	"context"

	"github.com/sells-group/leadscout/internal/model"
)

// Recorder writes pipeline progress for one run.
type Recorder struct {
	Store Store
	RunID string
}

// RecordSeen adds URLs to the seen-set.
func (r *Recorder) RecordSeen(ctx context.Context, urls []string) error {
	return r.Store.MarkSeen(ctx, r.RunID, urls)
}

// RecordLead saves an accepted lead under the recorder's run.
func (r *Recorder) RecordLead(ctx context.Context, lead model.Lead) error {
	if lead.RunID == "" {
		lead.RunID = r.RunID
	}
	return r.Store.SaveLead(ctx, lead)
}
