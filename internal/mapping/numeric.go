package mapping

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// proximityWindow is how far (in characters) a bare number may sit from
// a synonym occurrence and still be attributed to that field.
const proximityWindow = 50

// numericRange is a plausibility band for one family of numeric fields.
type numericRange struct {
	min, max float64
}

func (r numericRange) contains(v float64) bool {
	return v >= r.min && v <= r.max
}

// Numeric field families with plausible value ranges. Family membership
// is decided by substrings of the field name or its synonyms.
var (
	percentRange = numericRange{0, 100}
	gpaRange     = numericRange{0, 10}
	marksRange   = numericRange{0, 10000}
)

// numericValueRe matches a numeric token. The leading minus is consumed
// but never captured: digit strings misread as negatives must come back
// positive.
var numericValueRe = regexp.MustCompile(`-?\s*(\d+(?:\.\d+)?)`)

// numericLabelTemplates are tried per synonym, most specific first. %s
// receives the quoted synonym.
var numericLabelTemplates = []string{
	`%s\s*[:=]\s*-?\s*(\d+(?:\.\d+)?)\s*%%?`,         // "percentage: 87.5%"
	`%s\s*[-–]\s*-?\s*(\d+(?:\.\d+)?)\s*%%?`,         // "cgpa - 8.2"
	`%s\s*\n\s*-?\s*(\d+(?:\.\d+)?)\s*%%?`,           // label above value
	`%s[^\d\n]{0,10}?(\d+(?:\.\d+)?)\s*%%?`,          // punctuation-tolerant gap
	`(\d+(?:\.\d+)?)\s*%%?\s*(?:of\s+)?(?:\w+\s+){0,2}%s`, // value before label
}

// rangeFor picks the plausibility band for a numeric field from its
// name and synonyms.
func rangeFor(fieldName string, synonyms []string) numericRange {
	probe := strings.ToLower(fieldName) + " " + strings.Join(synonyms, " ")
	switch {
	case strings.Contains(probe, "percent"):
		return percentRange
	case strings.Contains(probe, "gpa"):
		return gpaRange
	default:
		return marksRange
	}
}

// extractNumeric runs the synonym-anchored pattern battery and, failing
// that, the proximity fallback. Returns (0, false) when no in-range
// number is attributable to the field.
func extractNumeric(lowerText, fieldName string, synonyms []string) (float64, bool) {
	band := rangeFor(fieldName, synonyms)

	for _, syn := range synonyms {
		quoted := regexp.QuoteMeta(syn)
		for _, tpl := range numericLabelTemplates {
			re, err := regexp.Compile(fmt.Sprintf(tpl, quoted))
			if err != nil {
				continue
			}
			for _, m := range re.FindAllStringSubmatch(lowerText, -1) {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil && band.contains(v) {
					return v, true
				}
			}
		}
	}

	return nearestNumber(lowerText, synonyms, band)
}

// nearestNumber finds the in-range number closest to any synonym
// occurrence, within the proximity window.
func nearestNumber(lowerText string, synonyms []string, band numericRange) (float64, bool) {
	numbers := numericValueRe.FindAllStringSubmatchIndex(lowerText, -1)
	if len(numbers) == 0 {
		return 0, false
	}

	bestDist := proximityWindow + 1
	var bestVal float64
	found := false

	for _, syn := range synonyms {
		from := 0
		for {
			idx := strings.Index(lowerText[from:], syn)
			if idx < 0 {
				break
			}
			synStart := from + idx
			synEnd := synStart + len(syn)

			for _, m := range numbers {
				numStart, numEnd := m[0], m[1]
				dist := 0
				switch {
				case numStart >= synEnd:
					dist = numStart - synEnd
				case numEnd <= synStart:
					dist = synStart - numEnd
				}
				if dist >= bestDist {
					continue
				}
				v, err := strconv.ParseFloat(lowerText[m[2]:m[3]], 64)
				if err != nil || !band.contains(v) {
					continue
				}
				bestDist = dist
				bestVal = v
				found = true
			}
			from = synEnd
		}
	}
	return bestVal, found
}
