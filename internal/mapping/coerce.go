package mapping

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"docpipe/internal/schema"
)

var nonNumericRe = regexp.MustCompile(`[^0-9.\-]`)

// CoerceValue converts a raw mapped value to its declared schema type.
// ok is false when the value cannot be represented; the warning then
// explains why and the field is omitted from mapped_data. Object-typed
// fields pass through unchanged.
func CoerceValue(raw any, fieldName string, spec schema.FieldSpec) (value any, ok bool, warning string) {
	if raw == nil {
		return nil, false, ""
	}

	switch spec.Type {
	case schema.TypeObject:
		return raw, true, ""

	case schema.TypeBoolean:
		return coerceBoolean(raw, fieldName)

	case schema.TypeNumber, schema.TypeInteger:
		return coerceNumeric(raw, fieldName, spec.Type)

	default:
		s := strings.TrimSpace(fmt.Sprintf("%v", raw))
		if s == "" {
			return nil, false, ""
		}
		return s, true, ""
	}
}

func coerceBoolean(raw any, fieldName string) (any, bool, string) {
	if b, isBool := raw.(bool); isBool {
		return b, true, ""
	}
	switch strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", raw))) {
	case "true", "yes", "y", "1":
		return true, true, ""
	case "false", "no", "n", "0":
		return false, true, ""
	case "":
		return nil, false, ""
	default:
		return nil, false, fmt.Sprintf("field %q: cannot interpret %q as boolean", fieldName, raw)
	}
}

// coerceNumeric strips everything but digits, dots, and minus signs,
// then drops the minus signs entirely: identifiers and scores are never
// negative, and OCR habitually misreads leading dashes as minus signs.
func coerceNumeric(raw any, fieldName, fieldType string) (any, bool, string) {
	if f, isFloat := raw.(float64); isFloat {
		return finishNumeric(math.Abs(f), fieldType), true, ""
	}

	s := strings.TrimSpace(fmt.Sprintf("%v", raw))
	if s == "" {
		return nil, false, ""
	}

	cleaned := nonNumericRe.ReplaceAllString(s, "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	if cleaned == "" || strings.Trim(cleaned, ".") == "" {
		return nil, false, fmt.Sprintf("field %q: no numeric content in %q", fieldName, s)
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil, false, fmt.Sprintf("field %q: cannot parse %q as %s", fieldName, s, fieldType)
	}
	return finishNumeric(f, fieldType), true, ""
}

func finishNumeric(f float64, fieldType string) any {
	if fieldType == schema.TypeInteger {
		return int64(math.Round(f))
	}
	return f
}
