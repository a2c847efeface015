package generation

import (
	"regexp"
	"strings"
)

// MaxQuestions caps the refinement questions kept from one response.
const MaxQuestions = 3

var questionMarker = regexp.MustCompile(`^\d+\.\s*`)

// ParseQuestions keeps lines that start with a "<n>." marker, strips the
// marker and returns at most MaxQuestions of them. Lines that are empty
// once the marker is removed are skipped.
func ParseQuestions(text string) []string {
	out := make([]string, 0, MaxQuestions)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		loc := questionMarker.FindStringIndex(line)
		if loc == nil {
			continue
		}
		q := strings.TrimSpace(line[loc[1]:])
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == MaxQuestions {
			break
		}
	}
	return out
}
