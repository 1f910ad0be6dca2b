package apify

import "context"

// Actor describes one scraping actor and how to build its input.
type Actor struct {
	ID    string
	Input func(urls []string) any
}

// ProfileActors are the interchangeable person-page scrapers, in the order
// they are tried.
func ProfileActors() []Actor {
	return []Actor{
		{
			ID: "harvestapi/linkedin-profile-scraper",
			Input: func(urls []string) any {
				return map[string]any{
					"profileScraperMode": "Profile details no email ($4 per 1k)",
					"queries":            urls,
				}
			},
		},
		{
			ID: "apimaestro/linkedin-profile-detail",
			Input: func(urls []string) any {
				return map[string]any{"profileUrls": urls}
			},
		},
		{
			ID: "supreme_coder/linkedin-profile-scraper",
			Input: func(urls []string) any {
				entries := make([]map[string]string, len(urls))
				for i, u := range urls {
					entries[i] = map[string]string{"url": u}
				}
				return map[string]any{"urls": entries}
			},
		},
	}
}

// CompanyActors are the organization-page scrapers.
func CompanyActors() []Actor {
	return []Actor{
		{
			ID: "dev_fusion/linkedin-company-scraper",
			Input: func(urls []string) any {
				return map[string]any{"companyUrls": urls}
			},
		},
	}
}

// ActorProvider runs one actor against a batch of URLs.
type ActorProvider struct {
	client Client
	actor  Actor
}

// NewActorProvider binds an actor to a client.
func NewActorProvider(c Client, a Actor) *ActorProvider {
	return &ActorProvider{client: c, actor: a}
}

// Name returns the actor ID.
func (p *ActorProvider) Name() string { return p.actor.ID }

// Scrape runs the actor with the given token.
func (p *ActorProvider) Scrape(ctx context.Context, key string, urls []string) ([]map[string]any, error) {
	return p.client.RunActor(ctx, key, p.actor.ID, p.actor.Input(urls))
}

// Providers wraps each actor in an ActorProvider.
func Providers(c Client, actors []Actor) []*ActorProvider {
	out := make([]*ActorProvider, len(actors))
	for i, a := range actors {
		out[i] = NewActorProvider(c, a)
	}
	return out
}
