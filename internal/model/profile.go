package model

// ProfileKind distinguishes person pages from organization pages.
type ProfileKind string

const (
	KindIndividual   ProfileKind = "individual"
	KindOrganization ProfileKind = "organization"
)

// EnrichmentState records whether a scraper supplied the record's detail.
type EnrichmentState string

const (
	StateEnriched     EnrichmentState = "enriched"
	StateFallbackOnly EnrichmentState = "fallback_only"
)

// Stub is a minimally parsed discovery result. URL is canonical:
// https://www.linkedin.com/{in|company}/{slug} with a lowercase slug.
type Stub struct {
	URL          string      `json:"url"`
	Kind         ProfileKind `json:"kind"`
	Name         string      `json:"name"`
	Headline     string      `json:"headline"`
	Organization string      `json:"organization"`
	Snippet      string      `json:"snippet"`
}

// Record is a Stub plus whatever detail enrichment recovered. It is
// written once by the matcher and treated as read-only afterwards.
type Record struct {
	Stub

	Location            string           `json:"location"`
	Biography           string           `json:"biography"`
	Followers           int              `json:"followers"`
	Connections         int              `json:"connections"`
	CurrentOrganization string           `json:"current_organization"`
	CurrentTitle        string           `json:"current_title"`
	TenureYears         int              `json:"tenure_years"`
	Education           string           `json:"education"`
	Skills              []string         `json:"skills,omitempty"`
	RawExperience       []map[string]any `json:"raw_experience,omitempty"`
	RawEducation        []map[string]any `json:"raw_education,omitempty"`

	// Organization pages only.
	Website     string   `json:"website,omitempty"`
	Industry    string   `json:"industry,omitempty"`
	CompanySize string   `json:"company_size,omitempty"`
	Founded     string   `json:"founded,omitempty"`
	Specialties []string `json:"specialties,omitempty"`

	// ProfileURL and PublicIdentifier are what the scraper reported; the
	// matcher keys on them.
	ProfileURL       string `json:"profile_url,omitempty"`
	PublicIdentifier string `json:"public_identifier,omitempty"`
	Provider         string `json:"provider,omitempty"`

	State EnrichmentState `json:"enrichment_state"`

	Raw map[string]any `json:"-"`
}

// DisplayOrganization returns the best organization name available.
func (r Record) DisplayOrganization() string {
	if r.CurrentOrganization != "" {
		return r.CurrentOrganization
	}
	return r.Organization
}

// Text returns the biography, or the discovery snippet when there is none.
func (r Record) Text() string {
	if r.Biography != "" {
		return r.Biography
	}
	return r.Snippet
}
