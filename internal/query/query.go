// Package query builds the round-indexed search batches that drive discovery.
package query

import "fmt"

// Batch is one round's search queries plus the result-page offset they
// should be issued with.
type Batch struct {
	Round   int       `json:"round"`
	Kind    RoundKind `json:"kind"`
	Queries []string  `json:"queries"`
	Offset  int       `json:"offset"`
}

// RoundKind names the query family a round belongs to.
type RoundKind string

const (
	KindSeed         RoundKind = "seed"
	KindCity         RoundKind = "city"
	KindOrganization RoundKind = "organization"
	KindDeepPage     RoundKind = "deep_page"
)

const (
	citiesPerRound = 6

	firstCityRound = 2
	firstOrgRound  = 6
	firstDeepRound = 9

	deepPageSize = 10
)

var cities = []string{
	"Delhi", "Mumbai", "Bangalore", "Hyderabad", "Chennai", "Kolkata",
	"Pune", "Jaipur", "Lucknow", "Kota", "Patna", "Chandigarh",
	"Ahmedabad", "Indore", "Bhopal", "Nagpur", "Varanasi", "Ranchi",
	"Dehradun", "Allahabad", "Noida", "Gurgaon", "Sikar", "Jodhpur",
}

// Cities returns the fixed city sweep list.
func Cities() []string {
	return append([]string(nil), cities...)
}

// Kind reports which query family round r uses.
func Kind(round int) RoundKind {
	switch {
	case round < firstCityRound:
		return KindSeed
	case round < firstOrgRound:
		return KindCity
	case round < firstDeepRound:
		return KindOrganization
	default:
		return KindDeepPage
	}
}

// Generate returns the batch for subject at the given zero-based round.
// The output depends only on its arguments.
func Generate(subject string, round int) Batch {
	if round < 0 {
		round = 0
	}
	b := Batch{Round: round, Kind: Kind(round)}

	switch b.Kind {
	case KindSeed:
		b.Queries = seedQueries(subject, round)
	case KindCity:
		for _, city := range cityChunk(round - firstCityRound) {
			b.Queries = append(b.Queries,
				fmt.Sprintf(`site:linkedin.com/in/ "%s" teacher %s`, subject, city),
				fmt.Sprintf(`site:linkedin.com/in/ "principal" school %s`, city),
				fmt.Sprintf(`site:linkedin.com/in/ "coaching" "director" %s`, city),
			)
		}
	case KindOrganization:
		for _, city := range cityChunk(round - firstOrgRound) {
			b.Queries = append(b.Queries,
				fmt.Sprintf(`site:linkedin.com/company/ "coaching" "classes" %s`, city),
				fmt.Sprintf(`site:linkedin.com/company/ "school" "education" %s`, city),
				fmt.Sprintf(`site:linkedin.com/company/ "academy" "institute" %s`, city),
			)
		}
	case KindDeepPage:
		b.Queries = []string{
			fmt.Sprintf(`site:linkedin.com/in/ "%s" "teacher" India`, subject),
			fmt.Sprintf(`site:linkedin.com/in/ "%s" "tutor" India`, subject),
			fmt.Sprintf(`site:linkedin.com/in/ "%s" "coaching" India`, subject),
			`site:linkedin.com/in/ "principal" "school" India`,
			`site:linkedin.com/in/ "founder" "education" India`,
		}
		b.Offset = (round-firstDeepRound)*deepPageSize + deepPageSize
	}
	return b
}

func seedQueries(subject string, round int) []string {
	if round == 0 {
		return []string{
			fmt.Sprintf(`site:linkedin.com/in/ "%s" "teacher" India`, subject),
			fmt.Sprintf(`site:linkedin.com/in/ "%s" "tutor" CBSE`, subject),
			fmt.Sprintf(`site:linkedin.com/in/ "%s" "coaching" "founder"`, subject),
			`site:linkedin.com/in/ "principal" "school" India`,
			`site:linkedin.com/in/ "director" "education" India`,
		}
	}
	return []string{
		fmt.Sprintf(`site:linkedin.com/in/ "%s" "educator" "classes"`, subject),
		fmt.Sprintf(`site:linkedin.com/in/ "head of department" "%s" school`, subject),
		`site:linkedin.com/in/ "academic head" school India`,
		`site:linkedin.com/in/ "vice principal" school India`,
		fmt.Sprintf(`site:linkedin.com/in/ "%s" "faculty" India`, subject),
	}
}

// cityChunk returns the i-th run of citiesPerRound cities, wrapping around
// the list once a sweep completes.
func cityChunk(i int) []string {
	chunks := (len(cities) + citiesPerRound - 1) / citiesPerRound
	start := (i % chunks) * citiesPerRound
	end := min(start+citiesPerRound, len(cities))
	return cities[start:end]
}
