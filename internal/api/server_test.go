package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
)

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := do(t, NewServer(&fakeReader{}, nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])

	rec = do(t, NewServer(&fakeReader{pingErr: errBoom}, nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{runs: []model.Run{{ID: "r1", Subject: "Physics", Status: model.RunStatusComplete}}}
	s := NewServer(reader, nil)

	rec := do(t, s, http.MethodGet, "/runs?status=complete&subject=Physics&limit=9999&offset=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode(t, rec)["runs"].([]any)
	assert.Len(t, runs, 1)
	assert.Equal(t, store.RunFilter{Status: model.RunStatusComplete, Subject: "Physics", Limit: maxLimit, Offset: 5}, reader.runFilter)

	rec = do(t, s, http.MethodGet, "/runs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRuns_EmptyIsArray(t *testing.T) {
	t.Parallel()

	rec := do(t, NewServer(&fakeReader{}, nil), http.MethodGet, "/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs":[]}`, rec.Body.String())
}

func TestGetRun(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{runs: []model.Run{{ID: "r1", Subject: "Physics", Target: 20, Status: model.RunStatusRunning}}}
	s := NewServer(reader, nil)

	rec := do(t, s, http.MethodGet, "/runs/r1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Physics", body["subject"])
	assert.Equal(t, "running", body["status"])

	rec = do(t, s, http.MethodGet, "/runs/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, NewServer(&fakeReader{err: errBoom}, nil), http.MethodGet, "/runs/r1", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListLeads(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantFilter store.LeadFilter
	}{
		{"all", "", http.StatusOK, store.LeadFilter{}},
		{"by run and tier", "?run_id=r1&tier=a&limit=10", http.StatusOK, store.LeadFilter{RunID: "r1", Tier: model.TierA, Limit: 10}},
		{"bad tier", "?tier=Z", http.StatusBadRequest, store.LeadFilter{}},
		{"bad limit", "?limit=-1", http.StatusBadRequest, store.LeadFilter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reader := &fakeReader{leads: []model.Lead{{Tier: model.TierA}}}
			rec := do(t, NewServer(reader, nil), http.MethodGet, "/leads"+tt.query, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantFilter, reader.leadFilter)
				assert.EqualValues(t, 1, decode(t, rec)["count"])
			}
		})
	}
}

func TestListLeads_StoreError(t *testing.T) {
	t.Parallel()

	rec := do(t, NewServer(&fakeReader{err: errBoom}, nil), http.MethodGet, "/leads", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCreateRun(t *testing.T) {
	t.Parallel()

	launcher := &fakeLauncher{}
	s := NewServer(&fakeReader{}, launcher)

	rec := do(t, s, http.MethodPost, "/runs", `{"subject":"  Physics Teacher ","target":25}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "run-42", body["run_id"])
	assert.Equal(t, "queued", body["status"])
	require.Len(t, launcher.reqs, 1)
	assert.Equal(t, RunRequest{Subject: "Physics Teacher", Target: 25}, launcher.reqs[0])
}

func TestCreateRun_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		launcher   Launcher
		body       string
		wantStatus int
	}{
		{"disabled", nil, `{"subject":"x"}`, http.StatusNotImplemented},
		{"bad json", &fakeLauncher{}, `{`, http.StatusBadRequest},
		{"missing subject", &fakeLauncher{}, `{"target":5}`, http.StatusBadRequest},
		{"negative target", &fakeLauncher{}, `{"subject":"x","target":-1}`, http.StatusBadRequest},
		{"invalid preset", &fakeLauncher{err: fmt.Errorf("%w: unknown preset %q", ErrInvalidRequest, "nope")}, `{"preset":"nope"}`, http.StatusBadRequest},
		{"launch failure", &fakeLauncher{err: errBoom}, `{"subject":"x"}`, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := do(t, NewServer(&fakeReader{}, tt.launcher), http.MethodPost, "/runs", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	rec := do(t, NewServer(&fakeReader{}, nil), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodOptions, "/runs", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	NewServer(&fakeReader{}, nil).Handler().ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
