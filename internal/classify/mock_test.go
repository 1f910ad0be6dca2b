package classify

import (
	"context"
	"sync"

	"github.com/sells-group/leadscout/internal/model"
)

// fakeOracle returns scripted responses in order; the last one repeats.
type fakeOracle struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeOracle) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)

	var err error
	if len(f.errs) > 0 {
		err = f.errs[min(i, len(f.errs)-1)]
	}
	if err != nil {
		return "", err
	}
	if len(f.responses) == 0 {
		return "", nil
	}
	return f.responses[min(i, len(f.responses)-1)], nil
}

func (f *fakeOracle) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// stubClassifier returns a fixed verdict or error.
type stubClassifier struct {
	cls   model.Classification
	err   error
	calls int
}

func (s *stubClassifier) Classify(context.Context, model.Record) (model.Classification, error) {
	s.calls++
	return s.cls, s.err
}
