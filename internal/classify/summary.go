package classify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/model"
)

const summaryPrompt = `Write a 2-sentence summary of why this LinkedIn professional is a good B2B lead for an online tutoring platform.
Profile: %s | %s | %s
Return ONLY the summary.`

// Summarizer writes short fit summaries for high-priority leads.
type Summarizer struct {
	oracle Oracle
}

// NewSummarizer returns a Summarizer. A nil oracle always produces the
// templated sentence.
func NewSummarizer(o Oracle) *Summarizer {
	return &Summarizer{oracle: o}
}

// Summarize never fails; oracle errors fall back to a template.
func (s *Summarizer) Summarize(ctx context.Context, rec model.Record, cls model.Classification) string {
	if s == nil || s.oracle == nil {
		return templateSummary(rec, cls)
	}

	text, err := s.oracle.Generate(ctx, fmt.Sprintf(summaryPrompt, rec.Name, rec.Headline, cls.Persona))
	if err != nil || strings.TrimSpace(text) == "" {
		zap.L().Debug("classify: summary fallback", zap.String("url", rec.URL), zap.Error(err))
		return templateSummary(rec, cls)
	}
	return strings.TrimSpace(text)
}

func templateSummary(rec model.Record, cls model.Classification) string {
	if loc := strings.TrimSpace(rec.Location); loc != "" {
		return fmt.Sprintf("%s based in %s.", cls.Persona, loc)
	}
	return cls.Persona + "."
}
