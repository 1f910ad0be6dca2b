package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/model"
)

// OracleClassifier asks a language model for a structured persona verdict.
type OracleClassifier struct {
	oracle Oracle
	name   string
}

// NewOracleClassifier wraps an Oracle. Name labels the strategy in
// classifications and metrics.
func NewOracleClassifier(o Oracle, name string) *OracleClassifier {
	return &OracleClassifier{oracle: o, name: name}
}

// Classify implements Classifier.
func (c *OracleClassifier) Classify(ctx context.Context, rec model.Record) (model.Classification, error) {
	text, err := c.oracle.Generate(ctx, buildPrompt(rec))
	if err != nil {
		return model.Classification{}, eris.Wrapf(err, "classify: %s generate", c.name)
	}

	cls, err := parseVerdict(text)
	if err != nil {
		return model.Classification{}, eris.Wrapf(err, "classify: %s response", c.name)
	}
	cls.Strategy = c.name
	return cls, nil
}

const promptTemplate = `Analyze this LinkedIn profile for an education platform collaboration. Return ONLY valid JSON.

Profile Data:
- Name: %s
- Headline: %s
- Location: %s
- About: %s
- Current Company: %s
- Current Role: %s
- Experience: %s
- Education: %s
- Skills: %s

Classify into ONE persona type:
- "Individual Tutor": Single teacher/tutor
- "Institute Leader": Principal, VP, Director of school/coaching
- "EdTech Decision-Maker": Founder/CEO/COO of edtech
- "School Administrator": HOD, Academic Head, Coordinator
- "Coaching Institute Owner": Owner of coaching center
- "Irrelevant": Not education related or Big Corp employee

Also detect:
- subjects: [Mathematics, Physics, Chemistry, Biology, English, etc]
- grades: [6,7,8,9,10,11,12]
- boards: [CBSE, ICSE, IB, IGCSE, Cambridge]
- seniority: "Owner/Founder", "C-Level", "Director", "Principal", "HOD", "Teacher"
- collaboration_potential: "High" (decision-maker), "Medium", "Low"

Return ONLY JSON:
{"persona_type": "...", "subjects": [...], "grades": [...], "boards": [...], "seniority": "...", "collaboration_potential": "...", "is_relevant": true, "reason": "..."}`

func buildPrompt(rec model.Record) string {
	return fmt.Sprintf(promptTemplate,
		rec.Name,
		rec.Headline,
		rec.Location,
		truncate(rec.Text(), 500),
		rec.DisplayOrganization(),
		rec.CurrentTitle,
		truncate(compact(rec.RawExperience), 500),
		truncate(compact(rec.RawEducation), 300),
		truncate(compact(rec.Skills), 200),
	)
}

// compact renders v as JSON, or "[]" when it is empty.
func compact(v any) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return "[]"
	}
	return string(b)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// verdict mirrors the JSON schema the prompt requests.
type verdict struct {
	PersonaType            string      `json:"persona_type"`
	Subjects               flexStrings `json:"subjects"`
	Grades                 flexStrings `json:"grades"`
	Boards                 flexStrings `json:"boards"`
	Seniority              string      `json:"seniority"`
	CollaborationPotential string      `json:"collaboration_potential"`
	IsRelevant             *bool       `json:"is_relevant"`
	Reason                 string      `json:"reason"`
}

func parseVerdict(text string) (model.Classification, error) {
	raw := cleanJSON(text)
	if raw == "" {
		return model.Classification{}, eris.New("empty response")
	}

	var v verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return model.Classification{}, eris.Wrap(err, "parse verdict")
	}
	if strings.TrimSpace(v.PersonaType) == "" {
		return model.Classification{}, eris.New("verdict missing persona_type")
	}

	relevant := true
	if v.IsRelevant != nil {
		relevant = *v.IsRelevant
	}
	return model.Classification{
		Persona:                strings.TrimSpace(v.PersonaType),
		Subjects:               v.Subjects,
		Grades:                 v.Grades,
		Boards:                 v.Boards,
		Seniority:              v.Seniority,
		CollaborationPotential: v.CollaborationPotential,
		IsRelevant:             relevant,
		Rationale:              v.Reason,
	}, nil
}

// cleanJSON extracts a JSON object from text that may be wrapped in
// markdown code fences or prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// flexStrings accepts a JSON array of strings or numbers, or a single
// scalar, and normalizes everything to strings.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = nil
		return nil
	}

	var items []any
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
	} else {
		var one any
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		items = []any{one}
	}

	out := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		switch x := it.(type) {
		case string:
			s = strings.TrimSpace(x)
		case float64:
			s = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(x)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	*f = out
	return nil
}
