package classify

import (
	"regexp"
	"strings"

	"github.com/sells-group/leadscout/internal/model"
)

// Contact confidence labels.
const (
	ConfidenceHigh      = "High"
	ConfidenceMedium    = "Medium"
	ConfidenceMediumLow = "Medium-Low"
	ConfidenceLinkedIn  = "LinkedIn Only"
)

var (
	emailRe = regexp.MustCompile(`[\w.-]+@[\w.-]+\.\w+`)
	// Indian mobile numbers: optional +91 and trunk 0, then ten digits from 6-9.
	phoneRe = regexp.MustCompile(`(?:\+91[\s-]?)?0?[6-9]\d{9}`)
)

// ExtractContacts scans the record's biography, headline and website for
// contact channels.
func ExtractContacts(rec model.Record) model.ContactBundle {
	blob := strings.ToLower(rec.Text() + " " + rec.Headline + " " + rec.Website)

	c := model.ContactBundle{
		Email:     emailRe.FindString(blob),
		Phone:     phoneRe.FindString(blob),
		Website:   strings.TrimSpace(rec.Website),
		WhatsApp:  strings.Contains(blob, "wa.me") || strings.Contains(blob, "chat.whatsapp"),
		Instagram: strings.Contains(blob, "instagram.com"),
		YouTube:   strings.Contains(blob, "youtube.com") || strings.Contains(blob, "youtu.be"),
		Twitter:   strings.Contains(blob, "twitter.com") || strings.Contains(blob, "//x.com/"),
		Facebook:  strings.Contains(blob, "facebook.com") || strings.Contains(blob, "fb.com/"),
	}
	return c
}

// ContactConfidence grades how reachable a lead is outside LinkedIn.
func ContactConfidence(c model.ContactBundle) string {
	switch {
	case c.Email != "" && c.Phone != "":
		return ConfidenceHigh
	case c.Email != "" || c.Phone != "":
		return ConfidenceMedium
	case c.Website != "" || c.WhatsApp:
		return ConfidenceMediumLow
	}
	return ConfidenceLinkedIn
}
