package enrich

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sells-group/leadscout/internal/model"
)

const unknownName = "Unknown"

// now is swapped in tests.
var now = time.Now

// Field aliases for person pages. Each provider names things differently;
// the first non-empty path wins. Dotted paths descend into nested objects.
var (
	urlPaths         = []string{"linkedinUrl", "url", "profileUrl", "profile_url", "linkedInUrl", "basic_info.profile_url", "basic_info.linkedinUrl"}
	namePaths        = []string{"fullName", "name", "full_name"}
	fallbackNames    = []string{"basic_info.fullname", "basic_info.full_name"}
	headlinePaths    = []string{"headline", "jobTitle", "title", "position", "basic_info.headline"}
	locationPaths    = []string{"location", "basic_info.location"}
	aboutPaths       = []string{"about", "summary", "description", "basic_info.about"}
	followerPaths    = []string{"followersCount", "followers", "follower_count", "basic_info.follower_count"}
	connectionPaths  = []string{"connectionsCount", "connections", "connections_count", "basic_info.connections_count"}
	companyPaths     = []string{"companyName", "current_company", "jobCompanyName", "basic_info.current_company"}
	skillPaths       = []string{"skills", "basic_info.skills"}
	experiencePaths  = []string{"experience", "experiences"}
	educationPaths   = []string{"education", "educations"}
	identifierPaths  = []string{"publicIdentifier", "public_identifier", "basic_info.public_identifier"}
	locationKeys     = []string{"city", "default", "country", "linkedinText"}
	expCompanyKeys   = []string{"companyName", "company", "company_name"}
	expTitleKeys     = []string{"title", "role", "position"}
	expStartKeys     = []string{"startDate", "dateRange", "start_date", "starts_at"}
	eduSchoolKeys    = []string{"schoolName", "school", "school_name"}
	eduDegreeKeys    = []string{"degreeName", "degree", "degree_name"}
	orgURLPaths      = []string{"url", "companyUrl", "linkedinUrl"}
	orgSizePaths     = []string{"employeeCount", "staffCount"}
	orgLocationPaths = []string{"headquarters.city", "headquarters.geographicArea"}
)

var yearRe = regexp.MustCompile(`\b\d{4}\b`)

// ExtractProfile maps one person-page item to a Record.
func ExtractProfile(item map[string]any) model.Record {
	rec := model.Record{
		Stub: model.Stub{
			Kind:     model.KindIndividual,
			Name:     profileName(item),
			Headline: firstString(item, headlinePaths...),
		},
		ProfileURL:          firstString(item, urlPaths...),
		Location:            location(item),
		Biography:           truncate(firstString(item, aboutPaths...), 500),
		Followers:           firstInt(item, followerPaths...),
		Connections:         firstInt(item, connectionPaths...),
		CurrentOrganization: firstString(item, companyPaths...),
		Skills:              skills(first(item, skillPaths...)),
		RawExperience:       objects(first(item, experiencePaths...)),
		RawEducation:        objects(first(item, educationPaths...)),
		PublicIdentifier:    firstString(item, identifierPaths...),
		State:               model.StateEnriched,
		Raw:                 item,
	}

	if cur := currentExperience(rec.RawExperience); cur != nil {
		if rec.CurrentOrganization == "" {
			rec.CurrentOrganization = firstString(cur, expCompanyKeys...)
		}
		rec.CurrentTitle = firstString(cur, expTitleKeys...)
	}
	rec.TenureYears = tenure(rec.RawExperience)
	rec.Education = educationText(rec.RawEducation)
	return rec
}

// ExtractOrganization maps one organization-page item to a Record.
func ExtractOrganization(item map[string]any) model.Record {
	name := firstString(item, "name")
	desc := firstString(item, "description")
	return model.Record{
		Stub: model.Stub{
			Kind:         model.KindOrganization,
			Name:         name,
			Headline:     truncate(desc, 200),
			Organization: name,
		},
		ProfileURL:          firstString(item, orgURLPaths...),
		Biography:           truncate(desc, 500),
		Location:            firstString(item, orgLocationPaths...),
		Industry:            firstString(item, "industry"),
		CompanySize:         firstString(item, orgSizePaths...),
		Founded:             firstString(item, "founded", "foundedOn.year"),
		Specialties:         skills(first(item, "specialties")),
		Followers:           firstInt(item, "followersCount", "followerCount"),
		Website:             firstString(item, "website", "websiteUrl"),
		CurrentOrganization: name,
		CurrentTitle:        "Company Page",
		State:               model.StateEnriched,
		Raw:                 item,
	}
}

func profileName(item map[string]any) string {
	if n := firstString(item, namePaths...); n != "" {
		return n
	}
	full := strings.TrimSpace(firstString(item, "firstName") + " " + firstString(item, "lastName"))
	if full != "" {
		return full
	}
	if n := firstString(item, fallbackNames...); n != "" {
		return n
	}
	return unknownName
}

func location(item map[string]any) string {
	v := first(item, locationPaths...)
	if m, ok := v.(map[string]any); ok {
		return firstString(m, locationKeys...)
	}
	return asString(v)
}

// currentExperience returns the entry flagged as current, else the first.
func currentExperience(exp []map[string]any) map[string]any {
	if len(exp) == 0 {
		return nil
	}
	for _, e := range exp {
		if truthy(e["isCurrent"]) || truthy(e["is_current"]) {
			return e
		}
	}
	return exp[0]
}

// tenure is the number of years since the earliest start year found.
func tenure(exp []map[string]any) int {
	year := now().Year()
	earliest := 0
	for _, e := range exp {
		for _, k := range expStartKeys {
			for _, y := range startYears(e[k]) {
				if y >= 1970 && y <= year && (earliest == 0 || y < earliest) {
					earliest = y
				}
			}
		}
	}
	if earliest == 0 {
		return 0
	}
	return max(year-earliest, 0)
}

func startYears(v any) []int {
	switch t := v.(type) {
	case string:
		var out []int
		for _, tok := range yearRe.FindAllString(t, -1) {
			if y, err := strconv.Atoi(tok); err == nil {
				out = append(out, y)
			}
		}
		return out
	case map[string]any:
		if y := asInt(t["year"]); y > 0 {
			return []int{y}
		}
		return startYears(t["text"])
	}
	return nil
}

func educationText(edu []map[string]any) string {
	for _, e := range edu {
		school := firstString(e, eduSchoolKeys...)
		if school == "" {
			continue
		}
		if degree := firstString(e, eduDegreeKeys...); degree != "" {
			return degree + " - " + school
		}
		return school
	}
	return ""
}

// lookup walks a dotted path through nested objects.
func lookup(item map[string]any, path string) any {
	var cur any = item
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[part]
	}
	return cur
}

// first returns the first value along paths that is not empty.
func first(item map[string]any, paths ...string) any {
	for _, p := range paths {
		if v := lookup(item, p); !empty(v) {
			return v
		}
	}
	return nil
}

func firstString(item map[string]any, paths ...string) string {
	for _, p := range paths {
		if s := asString(lookup(item, p)); s != "" {
			return s
		}
	}
	return ""
}

func firstInt(item map[string]any, paths ...string) int {
	for _, p := range paths {
		if n := asInt(lookup(item, p)); n > 0 {
			return n
		}
	}
	return 0
}

func empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case float64:
		return t == 0
	}
	return false
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	}
	return ""
}

// asInt accepts numbers and numeric strings such as "1,204" or "500+".
func asInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case int64:
		return int(t)
	case string:
		s := strings.TrimSuffix(strings.ReplaceAll(strings.TrimSpace(t), ",", ""), "+")
		n, err := strconv.Atoi(s)
		if err != nil {
			return 0
		}
		return n
	}
	return 0
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	}
	return false
}

// skills accepts a list of strings or {name} objects, or a comma list.
func skills(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, s := range t {
			switch e := s.(type) {
			case string:
				if e = strings.TrimSpace(e); e != "" {
					out = append(out, e)
				}
			case map[string]any:
				if n := firstString(e, "name", "title"); n != "" {
					out = append(out, n)
				}
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func objects(v any) []map[string]any {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, e := range list {
		if m, ok := e.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
