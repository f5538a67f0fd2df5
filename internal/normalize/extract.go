package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Extract decodes the JSON payload carried by raw model output. It first
// tries the whole text, then the first balanced [...] or {...} span that
// decodes to an object or a list of objects, which covers prose preambles
// and markdown fences. Bracketed lists of scalars in prose are skipped.
func Extract(raw string) (any, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	if v, ok := decode(text); ok {
		return v, nil
	}
	for i := 0; i < len(text); i++ {
		if text[i] != '[' && text[i] != '{' {
			continue
		}
		end := matchClose(text, i)
		if end < 0 {
			continue
		}
		if v, ok := decode(text[i : end+1]); ok && isPayload(v) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: no JSON object or array found", ErrMalformedResponse)
}

// decode parses s as exactly one JSON value. Numbers stay json.Number.
func decode(s string) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return v, true
}

// isPayload reports whether v is an object or a list holding only objects.
func isPayload(v any) bool {
	switch v := v.(type) {
	case map[string]any:
		return true
	case []any:
		for _, item := range v {
			if _, ok := item.(map[string]any); !ok {
				return false
			}
		}
		return true
	}
	return false
}

// matchClose returns the index of the bracket closing the one at start, or -1.
// Brackets inside JSON strings are ignored.
func matchClose(s string, start int) int {
	var stack []byte
	inString, escaped := false, false
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
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}
