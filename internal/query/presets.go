package query

import (
	"sort"
	"strings"
)

var presets = map[string]string{
	"physics":   "Physics Teacher",
	"chemistry": "Chemistry Teacher",
	"biology":   "Biology Teacher",
	"math":      "Mathematics Tutor",
	"english":   "English Teacher",
	"science":   "Science Teacher",
	"neet":      "NEET Faculty",
	"jee":       "JEE Faculty",
	"cbse":      "CBSE Teacher",
	"principal": "School Principal",
}

// Preset resolves a named preset (case-insensitive) to a search subject.
func Preset(name string) (string, bool) {
	s, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return s, ok
}

// Presets lists the preset names in sorted order.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
