package ingest

import (
	"regexp"
	"strings"
)

// MaxCoordinatePatterns caps how many hints are reported per document.
const MaxCoordinatePatterns = 20

var coordinatePatterns = []struct {
	label string
	re    *regexp.Regexp
}{
	{"lat_long", regexp.MustCompile(`(?i)[-+]?\d{1,3}\.\d+°?\s*[NS]?,?\s*[-+]?\d{1,3}\.\d+°?\s*[EW]?`)},
	{"utm_coords", regexp.MustCompile(`\d{6,7}\.\d+[mMfF]?\s*[NS],?\s*\d{6,7}\.\d+[mMfF]?\s*[EW]`)},
	{"bearing", regexp.MustCompile(`(?i)[NS]\s*\d{1,3}°\s*\d{1,2}['′]\s*\d{1,2}["″]?\s*[EW]`)},
	{"distance", regexp.MustCompile(`(?i)\d+\.?\d*\s*(?:feet|ft|meters?|m|miles?|mi)\b`)},
}

// FindCoordinatePatterns returns coordinate-like fragments found in text,
// labelled by kind, e.g. "bearing: N 45°30'15\" E".
func FindCoordinatePatterns(text string) []string {
	var found []string
	for _, p := range coordinatePatterns {
		for _, m := range p.re.FindAllString(text, -1) {
			found = append(found, p.label+": "+strings.TrimSpace(m))
			if len(found) == MaxCoordinatePatterns {
				return found
			}
		}
	}
	return found
}
