package api

import (
	"context"
	"errors"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
)

type fakeReader struct {
	runs    []model.Run
	leads   []model.Lead
	err     error
	pingErr error

	runFilter  store.RunFilter
	leadFilter store.LeadFilter
}

func (f *fakeReader) GetRun(_ context.Context, id string) (*model.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.runs {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeReader) ListRuns(_ context.Context, filter store.RunFilter) ([]model.Run, error) {
	f.runFilter = filter
	return f.runs, f.err
}

func (f *fakeReader) ListLeads(_ context.Context, filter store.LeadFilter) ([]model.Lead, error) {
	f.leadFilter = filter
	return f.leads, f.err
}

func (f *fakeReader) Ping(context.Context) error { return f.pingErr }

type fakeLauncher struct {
	reqs []RunRequest
	err  error
}

func (f *fakeLauncher) Launch(_ context.Context, req RunRequest) (*model.Run, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &model.Run{ID: "run-42", Subject: req.Subject, Target: req.Target, Status: model.RunStatusQueued}, nil
}

var errBoom = errors.New("boom")
