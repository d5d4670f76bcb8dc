package utils

import (
	"errors"
	"strings"
)

var ErrNoJSONObject = errors.New("no JSON object found in text")

// ExtractJSONObject returns the first balanced top-level {...} region in s.
// Model replies often wrap the payload in prose or markdown fences, so the
// scan tracks string literals and escapes instead of counting every brace.
func ExtractJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", ErrNoJSONObject
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
				return s[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSONObject
}
