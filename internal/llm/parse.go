package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseWithSchema implements spec.md §9's "dynamic JSON from LLMs"
// strategy: locate the first balanced JSON object in raw, validate its
// top-level shape against schema, and on failure retry once with a more
// permissive extraction that strips code fences and leading/trailing
// prose. A second failure is reported to the caller as a stage error,
// never a panic.
func ParseWithSchema(raw string, schema Schema, out any) error {
	if err := tryParse(raw, schema, out); err == nil {
		return nil
	}

	relaxed := extractJSONObject(stripCodeFences(raw))
	if relaxed == "" {
		return fmt.Errorf("llm: no JSON object found in response for schema %q", schema.Name)
	}
	if err := tryParse(relaxed, schema, out); err != nil {
		return fmt.Errorf("llm: schema %q validation failed after relaxed retry: %w", schema.Name, err)
	}
	return nil
}

func tryParse(raw string, schema Schema, out any) error {
	obj := extractJSONObject(raw)
	if obj == "" {
		return fmt.Errorf("no balanced JSON object found")
	}
	var generic map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &generic); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	for _, field := range schema.Required {
		if _, ok := generic[field]; !ok {
			return fmt.Errorf("missing required field %q", field)
		}
	}
	return json.Unmarshal([]byte(obj), out)
}

// stripCodeFences removes a single leading/trailing ``` or ```json fence
// if present, and trims surrounding prose outside the fence.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "```") {
		return s
	}
	start := strings.Index(s, "```")
	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		rest = rest[nl+1:]
	}
	if end := strings.Index(rest, "```"); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// extractJSONObject finds the first balanced {...} substring, tolerating
// nested braces and braces embedded in string literals.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
