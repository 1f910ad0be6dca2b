// Package filter implements the hard filter cascade that rejects records
// before any classification budget is spent on them.
package filter

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Taxonomy holds the keyword lists the cascade and the heuristic
// classifier match against. All entries are matched as lowercase substrings.
type Taxonomy struct {
	Education    []string `yaml:"education"`
	NonEducation []string `yaml:"non_education"`
	Leadership   []string `yaml:"leadership"`
	Context      []string `yaml:"context"`
	Region       []string `yaml:"region"`
	Blacklist    []string `yaml:"blacklist"`
	Institute    []string `yaml:"institute"`
}

// DefaultTaxonomy returns the built-in keyword lists.
func DefaultTaxonomy() *Taxonomy {
	return &Taxonomy{
		Education: []string{
			"teacher", "tutor", "educator", "professor", "lecturer", "faculty",
			"principal", "vice principal", "director of education", "academic",
			"head of department", "hod", "dean", "coaching", "classes",
			"school", "academy", "institute", "college", "university",
			"cbse", "icse", "igcse", "ib", "cambridge", "neet", "jee",
			"curriculum", "pedagogy", "learning", "education", "edtech",
			"tuition", "teaching", "instruction", "mentoring", "training",
			"mathematics", "physics", "chemistry", "biology", "english", "science",
			"founder", "ceo", "coo", "managing director",
		},
		NonEducation: []string{
			"software engineer", "data scientist", "product manager", "marketing",
			"sales executive", "business development", "consultant", "analyst",
			"recruiter", "hr manager", "finance", "banking", "real estate",
			"insurance", "automotive", "hospitality", "retail",
		},
		Leadership: []string{
			"founder", "ceo", "coo", "managing director", "director",
		},
		Context: []string{
			"school", "academy", "institute", "college", "university",
			"coaching", "classes", "education", "edtech", "teaching",
			"cbse", "icse", "igcse", "ib", "neet", "jee", "tuition",
			"curriculum", "pedagogy", "learning", "training",
		},
		Region: []string{
			"india", "delhi", "mumbai", "bangalore", "bengaluru", "hyderabad",
			"chennai", "kolkata", "pune", "jaipur", "lucknow", "kota", "patna",
			"chandigarh", "ahmedabad", "indore", "bhopal", "nagpur", "varanasi",
			"ranchi", "dehradun", "noida", "gurgaon", "gurugram", "greater noida",
			"ghaziabad", "faridabad", "new delhi", "navi mumbai", "thane",
			"karnataka", "maharashtra", "tamil nadu", "telangana", "kerala",
			"uttar pradesh", "rajasthan", "gujarat", "madhya pradesh", "bihar",
			"west bengal", "andhra pradesh", "odisha", "jharkhand", "haryana", "punjab",
		},
		Blacklist: []string{
			"PW", "Physics Wallah", "Unacademy", "Vedantu", "Byju", "Allen",
			"Adda247", "Sankalp", "Magnet Brains", "Xylem", "Utkarsh",
			"Motion", "Careerwill", "Apna College", "Infinity Learn", "Doubtnut",
			"Mahendra", "Wi-Fi Study", "Exampur", "Next Toppers",
			"Infosys", "TCS", "Wipro", "HCL", "Accenture", "Cognizant",
			"Amazon", "Google", "Microsoft", "Meta", "Facebook", "Apple", "OpenAI",
			"Flipkart", "Zomato", "Swiggy", "Paytm", "Ola", "Uber",
		},
		Institute: []string{
			"Academy", "Institute", "Classes", "Coaching", "Tutorial", "School",
			"Education", "Center", "Hub", "Campus", "Group", "Team",
			"System", "Official", "Centre", "Learning", "Foundation",
		},
	}
}

// LoadTaxonomy reads a YAML taxonomy file. Lists missing or empty in the
// file keep their defaults. An empty path returns the defaults.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	tax := DefaultTaxonomy()
	if path == "" {
		return tax, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "filter: read taxonomy %s", path)
	}

	var file Taxonomy
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "filter: parse taxonomy %s", path)
	}

	override(&tax.Education, file.Education)
	override(&tax.NonEducation, file.NonEducation)
	override(&tax.Leadership, file.Leadership)
	override(&tax.Context, file.Context)
	override(&tax.Region, file.Region)
	override(&tax.Blacklist, file.Blacklist)
	override(&tax.Institute, file.Institute)
	return tax, nil
}

func override(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}

// Normalized returns a copy of the taxonomy with every entry lowercased and
// blanks removed.
func (t *Taxonomy) Normalized() *Taxonomy {
	return &Taxonomy{
		Education:    lower(t.Education),
		NonEducation: lower(t.NonEducation),
		Leadership:   lower(t.Leadership),
		Context:      lower(t.Context),
		Region:       lower(t.Region),
		Blacklist:    lower(t.Blacklist),
		Institute:    lower(t.Institute),
	}
}

func lower(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Matches returns the entries of list found as substrings of text. Text
// is expected to be lowercased already.
func Matches(text string, list []string) []string {
	var found []string
	for _, kw := range list {
		if strings.Contains(text, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// ContainsAny reports whether text contains any entry of list.
func ContainsAny(text string, list []string) bool {
	for _, kw := range list {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
