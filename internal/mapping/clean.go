package mapping

import (
	"regexp"
	"strings"
	"unicode"

	"docpipe/internal/schema"
)

// maxCandidateLength bounds an extracted value; anything longer is OCR
// run-on, not a field value.
const maxCandidateLength = 100

// minAlnumRatio rejects candidates that are mostly punctuation noise.
const minAlnumRatio = 0.2

var (
	// OCR artifacts: runs of punctuation noise between real characters.
	noiseRe      = regexp.MustCompile(`[^\p{L}\p{N}\s.,/@%&'-]+`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	// A candidate that is itself a field label, not a value: trailing
	// "No"/"No."/"Number", or form-instruction verbs.
	labelSuffixRe   = regexp.MustCompile(`(?i)\b(no\.?|number|name|date)\s*[:.]?\s*$`)
	instructionalRe = regexp.MustCompile(`(?i)\b(enter|fill|click|select|choose|tick|write|sign|attach)\b`)
)

// cleanCandidate strips OCR noise from a raw regex capture and bounds
// its length.
func cleanCandidate(raw string) string {
	s := strings.TrimSpace(raw)
	if len(s) > maxCandidateLength {
		s = s[:maxCandidateLength]
	}
	s = noiseRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.Trim(strings.TrimSpace(s), ".,:-")
}

// plausible applies value-shape heuristics before a candidate is
// accepted for a field.
func plausible(value, fieldName string, spec schema.FieldSpec) bool {
	v := strings.TrimSpace(value)
	if v == "" {
		return false
	}
	if alnumRatio(v) < minAlnumRatio {
		return false
	}
	if labelSuffixRe.MatchString(v) || instructionalRe.MatchString(v) {
		return false
	}

	switch spec.Type {
	case schema.TypeNumber, schema.TypeInteger:
		if !strings.ContainsFunc(v, unicode.IsDigit) {
			return false
		}
	default:
		if strings.Contains(strings.ToLower(fieldName), "name") {
			if len(v) < 2 || !strings.ContainsFunc(v, unicode.IsLetter) {
				return false
			}
		}
	}
	return true
}

func alnumRatio(s string) float64 {
	if s == "" {
		return 0
	}
	alnum := 0
	total := 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(alnum) / float64(total)
}
