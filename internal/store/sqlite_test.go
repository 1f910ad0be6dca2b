package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func testLead(runID, slug string, tier model.Tier) model.Lead {
	return model.Lead{
		Record: model.Record{
			Stub: model.Stub{
				URL:      "https://www.linkedin.com/in/" + slug,
				Kind:     model.KindIndividual,
				Name:     "Person " + slug,
				Headline: "Physics Teacher at Sunrise Academy",
			},
			Location: "Pune, India",
			State:    model.StateEnriched,
		},
		RunID:          runID,
		Classification: model.Classification{Persona: model.PersonaIndividualTutor, IsRelevant: true, Strategy: "heuristic"},
		Tier:           tier,
		Summary:        "Individual Tutor based in Pune, India.",
		CreatedAt:      time.Now().UTC(),
	}
}

func TestSQLite_RunLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "Physics Teacher", 20)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusQueued, run.Status)

	require.NoError(t, s.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning))

	summary := model.RunSummary{
		Leads:      20,
		Rounds:     3,
		StopReason: "target_reached",
		Tiers:      map[model.Tier]int{model.TierA: 2, model.TierC: 18},
	}
	require.NoError(t, s.CompleteRun(ctx, run.ID, summary))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "Physics Teacher", got.Subject)
	assert.Equal(t, 20, got.Target)
	assert.Equal(t, model.RunStatusComplete, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "target_reached", got.Summary.StopReason)
	assert.Equal(t, 18, got.Summary.Tiers[model.TierC])
}

func TestSQLite_FailRun(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "Chemistry", 5)
	require.NoError(t, err)
	require.NoError(t, s.FailRun(ctx, run.ID, "search: all keys exhausted"))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, got.Status)
	assert.Equal(t, "search: all keys exhausted", got.Error)
	assert.Nil(t, got.Summary)
}

func TestSQLite_NotFound(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.UpdateRunStatus(ctx, "missing", model.RunStatusRunning)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.CompleteRun(ctx, "missing", model.RunSummary{})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLite_ListRuns(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	a, err := s.CreateRun(ctx, "Physics Teacher", 10)
	require.NoError(t, err)
	_, err = s.CreateRun(ctx, "Maths Tutor", 10)
	require.NoError(t, err)
	require.NoError(t, s.CompleteRun(ctx, a.ID, model.RunSummary{Leads: 10}))

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	done, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, a.ID, done[0].ID)

	bySubject, err := s.ListRuns(ctx, RunFilter{Subject: "maths tutor"})
	require.NoError(t, err)
	require.Len(t, bySubject, 1)
	assert.Equal(t, "Maths Tutor", bySubject[0].Subject)

	limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSQLite_Leads(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.SaveLead(ctx, testLead("run-1", "a", model.TierA)))
	require.NoError(t, s.SaveLead(ctx, testLead("run-1", "b", model.TierC)))
	require.NoError(t, s.SaveLead(ctx, testLead("run-2", "c", model.TierC)))

	// Saving the same URL again in the same run replaces it.
	updated := testLead("run-1", "b", model.TierB)
	require.NoError(t, s.SaveLead(ctx, updated))

	run1, err := s.ListLeads(ctx, LeadFilter{RunID: "run-1"})
	require.NoError(t, err)
	require.Len(t, run1, 2)
	assert.Equal(t, "Person a", run1[0].Name)
	assert.Equal(t, model.TierB, run1[1].Tier)
	assert.Equal(t, "Pune, India", run1[1].Location)
	assert.Equal(t, model.PersonaIndividualTutor, run1[1].Classification.Persona)

	tierC, err := s.ListLeads(ctx, LeadFilter{Tier: model.TierC})
	require.NoError(t, err)
	require.Len(t, tierC, 1)
	assert.Equal(t, "run-2", tierC[0].RunID)
}

func TestSQLite_SeenURLs(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.MarkSeen(ctx, "run-1", []string{
		"https://www.linkedin.com/in/a",
		"https://www.linkedin.com/in/b",
		"",
	}))
	// Equivalent URL under another run is ignored.
	require.NoError(t, s.MarkSeen(ctx, "run-2", []string{"http://linkedin.com/in/A/", "https://www.linkedin.com/company/acme"}))
	require.NoError(t, s.MarkSeen(ctx, "run-2", nil))

	urls, err := s.SeenURLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.linkedin.com/in/a",
		"https://www.linkedin.com/in/b",
		"https://www.linkedin.com/company/acme",
	}, urls)
}

func TestSQLite_Ping(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpen_SQLite(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, configFor("sqlite", filepath.Join(t.TempDir(), "open.db")))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.CreateRun(ctx, "Biology", 3)
	assert.NoError(t, err)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), configFor("mysql", "x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
