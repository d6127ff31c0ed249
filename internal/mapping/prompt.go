package mapping

import (
	"encoding/json"
	"fmt"
	"strings"

	"docpipe/internal/schema"
)

// mappingSystemPrompt frames the task for chat-style backends.
const mappingSystemPrompt = `You are a document data extraction system. You extract field values that appear literally in OCR text. You never infer, guess, or fabricate values.`

// mappingInstructions is the fixed instruction block appended to every
// mapping prompt. The rules encode hard-won OCR lessons: digit strings
// misread as negative numbers, relational descriptors glued onto names,
// and models that pad their JSON with prose or code fences.
const mappingInstructions = `RULES:
1. Extract ONLY values that appear literally in the document text. Never infer, calculate, or guess a value.
2. If a field's value is not verbatim present in the text, use null for that field.
3. For name fields: extract only the person's name. Strip relational descriptors such as "S/O", "D/O", "W/O", "son of", "daughter of", "wife of" and whatever follows them.
4. For date fields: extract a date only when the text explicitly labels it with the matching date type (e.g. a value labelled "Date of Issue" must not be used for a date-of-birth field).
5. For numeric and identifier fields: strip any leading hyphens or minus signs. OCR frequently misreads digit strings as negative numbers; real identifiers are never negative.
6. Never return placeholder values, lone punctuation, or strings made only of dashes or dots. Use null instead.
7. Return RAW JSON only. Your entire answer must start with { and end with }. No prose, no explanation, no code fences.`

// buildMappingPrompt assembles the extracted text, the JSON-serialized
// document-field schema, and the fixed instruction block into one prompt.
func buildMappingPrompt(text string, fields *schema.FieldSchema) (string, error) {
	docSchema := fields.DocumentSchema()
	schemaJSON, err := json.MarshalIndent(docSchema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize schema: %w", err)
	}

	var b strings.Builder
	b.WriteString("Map the document text below onto the target schema.\n\n")
	b.WriteString("TARGET SCHEMA (field name -> specification):\n")
	b.Write(schemaJSON)
	b.WriteString("\n\nDOCUMENT TEXT:\n")
	b.WriteString(text)
	b.WriteString("\n\n")
	b.WriteString(mappingInstructions)
	b.WriteString("\n\nReturn a JSON object with exactly the schema's field names as keys.")
	return b.String(), nil
}
