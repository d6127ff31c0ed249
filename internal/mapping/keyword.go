package mapping

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"docpipe/internal/logger"
	"docpipe/internal/schema"
)

// labelTemplates are the regex shapes tried per synonym, in order. %s
// receives the quoted synonym. Captures run to end of line; cleanup and
// plausibility trim the excess.
var labelTemplates = []string{
	`%s\s*[:：]\s*([^\n]+)`,          // "Name: Ravi Kumar"
	`%s\s*[-–]\s*([^\n]+)`,          // "Name - Ravi Kumar"
	`%s\s*\n\s*([^\n]+)`,            // label above value
	`%s\s+([^\n:]+)`,                // same line, whitespace only
	`%s\s*[.,;]+\s*([^\n]+)`,        // punctuation-tolerant
}

// KeywordEngine is the deterministic fallback mapper: case-insensitive
// synonym-driven regex search over the document text. Extracted string
// values keep the document's original casing.
type KeywordEngine struct {
	synonyms SynonymTable
	log      zerolog.Logger
}

// NewKeywordEngine creates an engine with the default synonym table.
func NewKeywordEngine() *KeywordEngine {
	return NewKeywordEngineWithSynonyms(DefaultSynonyms())
}

// NewKeywordEngineWithSynonyms creates an engine with an explicit
// synonym table (supplied by an external configuration store, or by
// tests).
func NewKeywordEngineWithSynonyms(synonyms SynonymTable) *KeywordEngine {
	return &KeywordEngine{
		synonyms: synonyms,
		log:      logger.WithComponent("keyword-mapping"),
	}
}

// MapTextToSchema extracts a value for every document field it can
// attribute in the text. Fields with no match are simply absent from
// the returned map; the coordinator records them as missing.
func (e *KeywordEngine) MapTextToSchema(text string, fields *schema.FieldSchema) map[string]any {
	lower := strings.ToLower(text)
	out := make(map[string]any)

	for _, name := range fields.DocumentFields() {
		spec, _ := fields.Spec(name)
		if spec.Type == schema.TypeObject {
			continue
		}
		if value := e.extractField(text, lower, name, spec); value != nil {
			out[name] = value
		}
	}

	e.log.Debug().
		Int("matched", len(out)).
		Int("document_fields", len(fields.DocumentFields())).
		Msg("Keyword mapping completed")
	return out
}

// extractField tries the numeric pattern families first for numeric
// fields, then the generic label battery. Numeric patterns run against
// the lowercased text; the label battery matches case-insensitively
// against the original so captures keep their casing.
func (e *KeywordEngine) extractField(text, lowerText, name string, spec schema.FieldSpec) any {
	synonyms := e.synonyms.Lookup(name)

	if spec.Type == schema.TypeNumber || spec.Type == schema.TypeInteger {
		if v, found := extractNumeric(lowerText, name, synonyms); found {
			return finishNumeric(v, spec.Type)
		}
		return nil
	}

	for _, syn := range synonyms {
		quoted := regexp.QuoteMeta(syn)
		for _, tpl := range labelTemplates {
			re, err := regexp.Compile(`(?i)` + fmt.Sprintf(tpl, quoted))
			if err != nil {
				continue
			}
			m := re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			candidate := cleanCandidate(m[1])
			if !plausible(candidate, name, spec) {
				continue
			}
			value, ok, _ := CoerceValue(candidate, name, spec)
			if !ok {
				continue
			}
			return value
		}
	}
	return nil
}
