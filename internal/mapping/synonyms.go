package mapping

import "strings"

// SynonymTable maps a normalized field name to the alternate labels the
// field may appear under in document text. Keys are lowercase with
// spaces, underscores, and hyphens removed.
type SynonymTable map[string][]string

// Lookup returns the synonyms for a field, with the field's own
// human-readable form prepended so unlisted fields still match their
// literal label.
func (t SynonymTable) Lookup(field string) []string {
	key := normalizeFieldName(field)

	self := strings.ToLower(strings.TrimSpace(field))
	self = strings.ReplaceAll(self, "_", " ")
	seen := map[string]bool{self: true}
	out := []string{self}

	for _, syn := range t[key] {
		s := strings.ToLower(strings.TrimSpace(syn))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// MergedWith returns a copy of t with entries from extra layered on
// top. Keys in extra are normalized; a field's synonym list replaces
// the base list outright rather than appending to it.
func (t SynonymTable) MergedWith(extra map[string][]string) SynonymTable {
	out := make(SynonymTable, len(t)+len(extra))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range extra {
		out[normalizeFieldName(k)] = v
	}
	return out
}

func normalizeFieldName(field string) string {
	key := strings.ToLower(strings.TrimSpace(field))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	return key
}

// DefaultSynonyms covers the labels seen on Indian educational
// certificates, marksheets, and identity documents.
func DefaultSynonyms() SynonymTable {
	return SynonymTable{
		"name":           {"candidate name", "student name", "full name", "name of candidate", "name of student", "applicant name"},
		"fathername":     {"father's name", "fathers name", "father name", "name of father", "s/o"},
		"mothername":     {"mother's name", "mothers name", "mother name", "name of mother"},
		"dateofbirth":    {"dob", "d.o.b", "birth date", "date of birth", "born on"},
		"gender":         {"sex", "gender"},
		"rollnumber":     {"roll no", "roll no.", "roll number", "rollno", "seat no", "seat number"},
		"registrationnumber": {"registration no", "registration no.", "reg no", "reg. no", "regn no", "enrolment no", "enrollment no"},
		"certificatenumber":  {"certificate no", "certificate no.", "cert no", "serial no", "sr no", "sl no"},
		"percentage":     {"percentage", "percent", "aggregate percentage", "marks percentage"},
		"cgpa":           {"cgpa", "gpa", "sgpa", "grade point average", "cumulative grade point average"},
		"grade":          {"grade", "division", "class obtained"},
		"marks":          {"marks obtained", "total marks obtained", "marks", "score"},
		"totalmarks":     {"total marks", "maximum marks", "out of", "full marks"},
		"board":          {"board", "board of education", "examining board", "council"},
		"school":         {"school", "school name", "institution", "institute", "college", "university"},
		"examination":    {"examination", "exam", "exam name", "course", "programme", "program"},
		"passingyear":    {"year of passing", "passing year", "year", "exam year", "session"},
		"address":        {"address", "residence", "residential address", "permanent address"},
		"district":       {"district", "dist"},
		"state":          {"state"},
		"pincode":        {"pin code", "pincode", "pin", "postal code", "zip"},
		"aadhaarnumber":  {"aadhaar no", "aadhaar number", "aadhar no", "aadhar number", "uid"},
		"email":          {"email", "e-mail", "email id", "email address"},
		"phone":          {"phone", "phone no", "mobile", "mobile no", "mobile number", "contact no"},
	}
}
