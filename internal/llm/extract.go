package llm

import (
	"encoding/json"
	"strings"
)

// Extraction is the outcome of parsing structured completion output:
// either a parsed field map or the malformed raw text.
type Extraction struct {
	Fields map[string]any
	Raw    string
	OK     bool
}

// ExtractFields parses a completion response that is supposed to contain
// a single JSON object. Surrounding markdown code fences are stripped,
// then a strict parse is attempted; on failure one bounded repair pass
// substitutes double quotes for single quotes and reparses. Anything
// still malformed is reported as such, never as an error or panic.
func ExtractFields(text string) Extraction {
	cleaned := stripFences(text)

	var fields map[string]any
	if err := json.Unmarshal([]byte(cleaned), &fields); err == nil {
		return Extraction{Fields: fields, Raw: text, OK: true}
	}

	repaired := strings.ReplaceAll(cleaned, "'", `"`)
	if err := json.Unmarshal([]byte(repaired), &fields); err == nil {
		return Extraction{Fields: fields, Raw: text, OK: true}
	}

	return Extraction{Raw: text}
}

// stripFences removes surrounding markdown code fences, with an optional
// language tag on the opening fence.
func stripFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			cleaned = cleaned[idx+1:]
		}
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}

// StringField returns the named field as a trimmed string, tolerating
// JSON numbers (task ids often come back unquoted).
func (e Extraction) StringField(name string) string {
	v, ok := e.Fields[name]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		// Task ids often come back as bare numbers.
		return jsonNumber(val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	}
	return ""
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
