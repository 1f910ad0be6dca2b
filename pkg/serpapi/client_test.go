package serpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/resilience"
)

func TestSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/search.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, `site:linkedin.com/in/ "Physics" "teacher" India`, q.Get("q"))
		assert.Equal(t, "test-key", q.Get("api_key"))
		assert.Equal(t, "20", q.Get("num"))
		assert.Equal(t, "in", q.Get("gl"))
		assert.Equal(t, "en", q.Get("hl"))
		assert.Equal(t, "", q.Get("start"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{
			OrganicResults: []OrganicResult{
				{Position: 1, Title: "Asha Verma - Physics Teacher - DPS | LinkedIn", Link: "https://in.linkedin.com/in/asha-verma", Snippet: "Physics educator"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), SearchRequest{
		Query:    `site:linkedin.com/in/ "Physics" "teacher" India`,
		Country:  "in",
		Language: "en",
		Num:      20,
	})

	require.NoError(t, err)
	require.Len(t, resp.OrganicResults, 1)
	assert.Equal(t, "https://in.linkedin.com/in/asha-verma", resp.OrganicResults[0].Link)
}

func TestSearch_SendsStartOffset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "30", r.URL.Query().Get("start"))
		_, _ = w.Write([]byte(`{"organic_results": []}`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), SearchRequest{Query: "q", Start: 30})
	require.NoError(t, err)
	assert.Empty(t, resp.OrganicResults)
}

func TestSearch_NoResultsIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error": "Google hasn't returned any results for this query."}`))
	}))
	defer srv.Close()

	resp, err := NewClient("k", WithBaseURL(srv.URL)).Search(context.Background(), SearchRequest{Query: "q"})
	require.NoError(t, err)
	assert.Empty(t, resp.OrganicResults)
}

func TestSearch_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   resilience.Kind
	}{
		{"invalid key", http.StatusUnauthorized, `{"error": "Invalid API key. Your API key should be here: https://serpapi.com/manage-api-key"}`, resilience.KindAuth},
		{"out of searches", http.StatusTooManyRequests, `{"error": "Your account has run out of searches."}`, resilience.KindQuota},
		{"server error", http.StatusInternalServerError, `oops`, resilience.KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			resp, err := NewClient("k", WithBaseURL(srv.URL)).Search(context.Background(), SearchRequest{Query: "q"})
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, tt.want, resilience.Classify(err))
		})
	}
}

func TestSearch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewClient("k", WithBaseURL(srv.URL)).Search(ctx, SearchRequest{Query: "q"})
	assert.Error(t, err)
}
