package discovery

import (
	"context"

	"github.com/sells-group/leadscout/pkg/jina"
	"github.com/sells-group/leadscout/pkg/serpapi"
)

// SerpAPISearcher adapts the SerpAPI Google engine.
type SerpAPISearcher struct {
	Client serpapi.Client
}

// Search implements Searcher.
func (s SerpAPISearcher) Search(ctx context.Context, req Request) ([]Hit, error) {
	resp, err := s.Client.Search(ctx, serpapi.SearchRequest{
		Query:    req.Query,
		Country:  req.Region,
		Language: req.Language,
		Num:      req.Count,
		Start:    req.Offset,
	})
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		hits = append(hits, Hit{URL: r.Link, Title: r.Title, Snippet: r.Snippet})
	}
	return hits, nil
}

// JinaSearcher adapts Jina Search. Jina pages by page number, so offsets
// are converted to the page containing them.
type JinaSearcher struct {
	Client jina.Client
}

// Search implements Searcher.
func (s JinaSearcher) Search(ctx context.Context, req Request) ([]Hit, error) {
	opts := []jina.SearchOption{jina.WithLocale(req.Region, req.Language)}
	if req.Count > 0 {
		opts = append(opts, jina.WithCount(req.Count))
		if req.Offset > 0 {
			opts = append(opts, jina.WithPage(req.Offset/req.Count+1))
		}
	}

	resp, err := s.Client.Search(ctx, req.Query, opts...)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(resp.Data))
	for _, r := range resp.Data {
		snippet := r.Description
		if snippet == "" {
			snippet = r.Content
		}
		hits = append(hits, Hit{URL: r.URL, Title: r.Title, Snippet: snippet})
	}
	return hits, nil
}
