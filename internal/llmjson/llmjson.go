// Package llmjson extracts JSON objects from noisy language-model output.
//
// Models wrap JSON in markdown fences, prepend prose, append commentary,
// leave trailing commas, and stop mid-object when their output budget runs
// out. [Extract] recovers the first complete top-level object; [Decode]
// additionally unmarshals it.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrNoObject is returned when the output holds no '{'.
	ErrNoObject = errors.New("llmjson: no JSON object in output")

	// ErrTruncated is returned when the first object is never closed,
	// typically because the output budget was exhausted.
	ErrTruncated = errors.New("llmjson: JSON object is truncated")
)

// Extract returns the first balanced top-level JSON object in raw, with
// trailing commas before a closing bracket removed.
func Extract(raw string) (string, error) {
	s := stripNoise(stripMarkdown(raw))

	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", ErrNoObject
	}
	s = s[start:]

	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return dropTrailingCommas(s[:i+1]), nil
			}
		}
	}
	return "", ErrTruncated
}

// Decode extracts the first object from raw and unmarshals it into v.
func Decode(raw string, v any) error {
	obj, err := Extract(raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(obj), v); err != nil {
		return fmt.Errorf("llmjson: decode: %w", err)
	}
	return nil
}

// stripMarkdown removes optional markdown code fences (```json ... ```) that
// some models prepend and append to JSON output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```JSON", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}

// stripNoise drops zero-width characters, a BOM and control characters
// other than whitespace.
func stripNoise(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff':
			return -1
		case '\n', '\r', '\t':
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// dropTrailingCommas removes commas that directly precede '}' or ']' outside
// string literals.
func dropTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
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
		if c == '"' {
			inString = true
		}
		if c == ',' {
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\n' || s[j] == '\r' || s[j] == '\t') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
