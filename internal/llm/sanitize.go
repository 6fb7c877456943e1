package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// StripCodeFence returns the body of a ```json or ``` fenced block when present,
// otherwise the trimmed input.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```json"); i >= 0 {
		rest := s[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		return strings.TrimSpace(rest)
	}
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if j := strings.Index(rest, "```"); j >= 0 {
			rest = rest[:j]
		}
		return strings.TrimSpace(rest)
	}
	return s
}

// NormalizeCardJSON keeps only the known card keys and coerces their values to
// trimmed strings: null becomes "", numbers are formatted, arrays take their
// first string element. Models sometimes answer a phone as a number or a list.
func NormalizeCardJSON(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	known := make(map[string]struct{}, len(CardFieldKeys))
	for _, k := range CardFieldKeys {
		known[k] = struct{}{}
	}

	var changed []string
	out := make(map[string]string, len(CardFieldKeys))
	for k, v := range m {
		if _, ok := known[k]; !ok {
			changed = append(changed, k+"(unknown)")
			continue
		}
		s, coerced := coerceString(v)
		if coerced {
			changed = append(changed, k)
		}
		out[k] = strings.TrimSpace(s)
	}

	b, err := json.Marshal(out)
	if err != nil {
		return nil, nil, fmt.Errorf("sanitize: encode: %w", err)
	}
	return b, changed, nil
}

func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, false
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case []any:
		for _, e := range t {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				return s, true
			}
		}
		return "", true
	default:
		return "", true
	}
}
