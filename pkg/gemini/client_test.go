package gemini

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/sells-group/leadscout/internal/resilience"
)

func TestNew_RequiresKeyAndModel(t *testing.T) {
	_, err := New(context.Background(), Config{Model: "gemini-2.0-flash"})
	assert.ErrorContains(t, err, "api key is required")

	_, err = New(context.Background(), Config{APIKey: "k"})
	assert.ErrorContains(t, err, "model is required")
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-2.0-flash:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"persona_type\":\"Individual Tutor\"}"}]}}]}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), Config{APIKey: "k", Model: "gemini-2.0-flash", BaseURL: srv.URL})
	require.NoError(t, err)

	out, err := c.Generate(context.Background(), "classify")
	require.NoError(t, err)
	assert.Equal(t, `{"persona_type":"Individual Tutor"}`, out)
}

func TestClassifyErr(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want resilience.Kind
	}{
		{name: "api_429", in: genai.APIError{Code: 429}, want: resilience.KindRateLimit},
		{name: "api_500", in: genai.APIError{Code: 500}, want: resilience.KindTransient},
		{name: "api_403", in: genai.APIError{Code: 403}, want: resilience.KindAuth},
		{name: "plain", in: errors.New("boom"), want: resilience.KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resilience.Classify(classifyErr(tt.in)))
		})
	}
	assert.NoError(t, classifyErr(nil))
}
