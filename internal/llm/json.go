package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/Nyukimin/daily-zodiac/internal/logging"
)

// ExtractJSON finds the first JSON object in an LLM response and decodes it
// into v. Markdown fences and surrounding prose are ignored. When the object
// does not parse it is passed once through jsonrepair.
func ExtractJSON(text string, v interface{}) error {
	candidate := extractJSONObject(unfence(text))
	if candidate == "" {
		return fmt.Errorf("%w: no JSON object found", ErrMalformed)
	}

	err := json.Unmarshal([]byte(candidate), v)
	if err == nil {
		return nil
	}
	if _, isType := err.(*json.UnmarshalTypeError); isType {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	repaired, rerr := jsonrepair.JSONRepair(candidate)
	if rerr != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	logging.LLMDebug("Repaired malformed JSON response")
	return nil
}

// unfence returns the body of the first ``` fenced block, or s unchanged.
func unfence(s string) string {
	start := strings.Index(s, "```")
	if start == -1 {
		return s
	}
	body := s[start+3:]
	if nl := strings.Index(body, "\n"); nl != -1 {
		// Skip the info string ("json").
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end != -1 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// extractJSONObject returns the first balanced {...} span in s. Braces
// inside string literals are ignored. An unterminated object is returned
// as-is from its opening brace so repair can close it.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
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
	return strings.TrimSpace(s[start:])
}
