package model

import "time"

// Persona categories returned by classification.
const (
	PersonaIndividualTutor  = "Individual Tutor"
	PersonaInstituteLeader  = "Institute Leader"
	PersonaEdTechDecision   = "EdTech Decision-Maker"
	PersonaSchoolAdmin      = "School Administrator"
	PersonaCoachingOwner    = "Coaching Institute Owner"
	PersonaIrrelevant       = "Irrelevant"
	PersonaTeacherShorthand = "Teacher"
)

// Classification is the persona verdict for one record.
type Classification struct {
	Persona                string   `json:"persona_type"`
	Subjects               []string `json:"subjects"`
	Grades                 []string `json:"grades"`
	Boards                 []string `json:"boards"`
	Seniority              string   `json:"seniority"`
	CollaborationPotential string   `json:"collaboration_potential"`
	IsRelevant             bool     `json:"is_relevant"`
	Rationale              string   `json:"reason"`
	Strategy               string   `json:"strategy"`
}

// ContactBundle holds contact signals found in a record's text.
type ContactBundle struct {
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Website   string `json:"website,omitempty"`
	WhatsApp  bool   `json:"whatsapp"`
	Instagram bool   `json:"instagram"`
	YouTube   bool   `json:"youtube"`
	Twitter   bool   `json:"twitter"`
	Facebook  bool   `json:"facebook"`
}

// HasChannel reports whether a direct contact channel exists.
func (c ContactBundle) HasChannel() bool {
	return c.Email != "" || c.Phone != "" || c.Website != ""
}

// Tier is the outreach priority bucket.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
	TierD Tier = "D"
)

// Lead is a fully processed candidate.
type Lead struct {
	Record

	RunID             string         `json:"run_id,omitempty"`
	Classification    Classification `json:"classification"`
	Contacts          ContactBundle  `json:"contacts"`
	ContactConfidence string         `json:"contact_confidence"`
	Tier              Tier           `json:"tier"`
	Summary           string         `json:"summary"`
	CreatedAt         time.Time      `json:"created_at"`
}
