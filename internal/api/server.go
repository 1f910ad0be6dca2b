// Package api serves run and lead data over HTTP and accepts new runs.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/metrics"
	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
)

const maxLimit = 500

// Reader is the read side of the store the API needs.
type Reader interface {
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error)
	ListLeads(ctx context.Context, filter store.LeadFilter) ([]model.Lead, error)
	Ping(ctx context.Context) error
}

// RunRequest is the body of POST /runs.
type RunRequest struct {
	Subject string `json:"subject"`
	Target  int    `json:"target"`
	Preset  string `json:"preset,omitempty"`
}

// Launcher starts a run in the background and returns its queued record.
type Launcher interface {
	Launch(ctx context.Context, req RunRequest) (*model.Run, error)
}

// ErrInvalidRequest marks launcher errors caused by the caller.
var ErrInvalidRequest = errors.New("invalid run request")

// Server wires HTTP handlers to the store and launcher.
type Server struct {
	router   chi.Router
	reader   Reader
	launcher Launcher
	log      *zap.Logger
}

// NewServer builds the router. launcher may be nil, which disables POST /runs.
func NewServer(reader Reader, launcher Launcher) *Server {
	s := &Server{
		reader:   reader,
		launcher: launcher,
		log:      zap.L().With(zap.String("component", "api")),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.listRuns)
		r.Post("/", s.createRun)
		r.Get("/{id}", s.getRun)
	})
	r.Get("/leads", s.listLeads)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.reader.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, _ := strconv.Atoi(q.Get("offset"))

	runs, err := s.reader.ListRuns(r.Context(), store.RunFilter{
		Status:  model.RunStatus(q.Get("status")),
		Subject: q.Get("subject"),
		Limit:   limit,
		Offset:  max(offset, 0),
	})
	if err != nil {
		s.log.Error("api: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.reader.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.log.Error("api: get run", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tier := model.Tier(strings.ToUpper(q.Get("tier")))
	switch tier {
	case "", model.TierA, model.TierB, model.TierC, model.TierD:
	default:
		writeError(w, http.StatusBadRequest, "tier must be one of A, B, C, D")
		return
	}

	leads, err := s.reader.ListLeads(r.Context(), store.LeadFilter{
		RunID: q.Get("run_id"),
		Tier:  tier,
		Limit: limit,
	})
	if err != nil {
		s.log.Error("api: list leads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"leads": leads, "count": len(leads)})
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	if s.launcher == nil {
		writeError(w, http.StatusNotImplemented, "run launching is disabled")
		return
	}
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Subject = strings.TrimSpace(req.Subject)
	if req.Subject == "" && req.Preset == "" {
		writeError(w, http.StatusBadRequest, "subject or preset is required")
		return
	}
	if req.Target < 0 {
		writeError(w, http.StatusBadRequest, "target must be positive")
		return
	}

	run, err := s.launcher.Launch(r.Context(), req)
	if errors.Is(err, ErrInvalidRequest) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.log.Error("api: launch run", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start run")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"run_id": run.ID, "status": run.Status})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return min(n, maxLimit), nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("api: write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
