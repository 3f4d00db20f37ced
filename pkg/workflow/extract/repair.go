// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tailscale/hujson"
)

// Repair rewrites relaxed JSON into strict JSON. It accepts comments,
// trailing commas, single-quoted strings and unquoted object keys, the
// deviations models produce most often.
func Repair(text string) (string, error) {
	normalized := quoteRelaxedTokens(text)

	standard, err := hujson.Standardize([]byte(normalized))
	if err != nil {
		return "", fmt.Errorf("repairing json: %w", err)
	}

	// Round-trip so the result is compact and known-valid.
	var v any
	if err := json.Unmarshal(standard, &v); err != nil {
		return "", fmt.Errorf("repairing json: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("repairing json: %w", err)
	}
	return string(out), nil
}

// quoteRelaxedTokens converts single-quoted strings to double-quoted ones
// and quotes bare identifiers used as object keys. Comments and
// double-quoted strings are copied through untouched.
func quoteRelaxedTokens(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	// last significant byte emitted outside strings and comments
	var last byte
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '"':
			j, _ := scanQuoted(s, i, '"')
			b.WriteString(s[i:j])
			last = '"'
			i = j

		case c == '\'':
			j, ok := scanQuoted(s, i, '\'')
			if !ok {
				// Unterminated: copy through and let the parser report it.
				b.WriteString(s[i:])
				i = len(s)
				continue
			}
			b.WriteString(requote(s[i+1 : j-1]))
			last = '"'
			i = j

		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			j := strings.IndexByte(s[i:], '\n')
			if j < 0 {
				j = len(s) - i
			}
			b.WriteString(s[i : i+j])
			i += j

		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			j := strings.Index(s[i+2:], "*/")
			end := len(s)
			if j >= 0 {
				end = i + 2 + j + 2
			}
			b.WriteString(s[i:end])
			i = end

		case isIdentStart(c):
			j := i + 1
			for j < len(s) && isIdentPart(s[j]) {
				j++
			}
			ident := s[i:j]
			k := j
			for k < len(s) && isSpace(s[k]) {
				k++
			}
			if (last == '{' || last == ',') && k < len(s) && s[k] == ':' {
				b.WriteByte('"')
				b.WriteString(ident)
				b.WriteByte('"')
				last = '"'
			} else {
				b.WriteString(ident)
				last = ident[len(ident)-1]
			}
			i = j

		default:
			b.WriteByte(c)
			if !isSpace(c) {
				last = c
			}
			i++
		}
	}
	return b.String()
}

// scanQuoted returns the index just past the closing quote of the string
// starting at s[start]. ok is false when the string is unterminated, in
// which case the index is len(s).
func scanQuoted(s string, start int, quote byte) (int, bool) {
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i + 1, true
		}
	}
	return len(s), false
}

// requote turns the body of a single-quoted string into a JSON string.
func requote(body string) string {
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			next := body[i+1]
			if next == '\'' {
				b.WriteByte('\'')
			} else {
				b.WriteByte(c)
				b.WriteByte(next)
			}
			i++
			continue
		}
		if c == '"' {
			b.WriteString(`\"`)
			continue
		}
		b.WriteByte(c)
	}
	return `"` + b.String() + `"`
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
