/**
 * Field extractor.
 *
 * Pulls structured fields out of recognized text using the ordered rule
 * tables in rules.go. Extraction is a pure function of (text, document type):
 * deterministic and side-effect free. A field with no match is simply absent.
 */

package extract

import (
	"strings"

	"github.com/docukit/recognizer/internal/classify"
)

// Fields maps a field name to its extracted value; nil means no pattern
// matched, which serializes as JSON null.
type Fields map[string]*string

// Value returns the extracted value for a field and whether it is present.
func (f Fields) Value(field string) (string, bool) {
	v, ok := f[field]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// SensitiveValues returns the present values of the fields considered
// sensitive for redaction: name, id_number, phone, account_number.
func (f Fields) SensitiveValues() []string {
	var values []string
	for _, field := range []string{FieldName, FieldIDNumber, FieldPhone, FieldAccountNumber} {
		if v, ok := f.Value(field); ok && v != "" {
			values = append(values, v)
		}
	}
	return values
}

// Extract applies every base field family to text, then the type-conditional
// families for docType. Failure to extract one field never blocks others.
func Extract(text string, docType classify.DocumentType) Fields {
	fields := make(Fields, len(baseRules)+2)

	for _, r := range baseRules {
		if !r.appliesTo(docType) {
			fields[r.field] = nil
			continue
		}
		fields[r.field] = r.match(text)
	}

	for _, r := range typeRules[docType] {
		fields[r.field] = r.match(text)
	}

	return fields
}

// appliesTo reports whether the rule is active for docType.
func (r rule) appliesTo(docType classify.DocumentType) bool {
	if len(r.types) == 0 {
		return true
	}
	for _, t := range r.types {
		if t == docType {
			return true
		}
	}
	return false
}

// match runs the rule's patterns in order and returns the selected match of
// the first pattern that matches, or nil.
func (r rule) match(text string) *string {
	for _, p := range r.patterns {
		var m []string
		switch r.pick {
		case lastMatch:
			all := p.FindAllStringSubmatch(text, -1)
			if len(all) > 0 {
				m = all[len(all)-1]
			}
		default:
			m = p.FindStringSubmatch(text)
		}

		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[r.group])
		return &value
	}
	return nil
}
