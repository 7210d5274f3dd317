package config

import (
	"errors"
	"strings"
)

// normalizeJSONC blanks out comments and drops trailing commas so the result
// decodes as plain JSON. Byte offsets are preserved for error positions,
// except that each dropped comma shifts later text left by one.
func normalizeJSONC(content string) (string, error) {
	stripped, err := blankComments(content)
	if err != nil {
		return "", err
	}
	return dropTrailingCommas(stripped), nil
}

// scanner tracks whether the cursor is inside a JSON string literal.
type scanner struct {
	inString bool
	escaped  bool
}

// inLiteral consumes ch and reports whether it belongs to a string literal.
func (s *scanner) inLiteral(ch byte) bool {
	if !s.inString {
		if ch == '"' {
			s.inString = true
			return true
		}
		return false
	}

	switch {
	case s.escaped:
		s.escaped = false
	case ch == '\\':
		s.escaped = true
	case ch == '"':
		s.inString = false
	}
	return true
}

func blankComments(content string) (string, error) {
	out := []byte(content)
	var sc scanner

	for i := 0; i < len(out); i++ {
		if sc.inLiteral(out[i]) || out[i] != '/' || i+1 >= len(out) {
			continue
		}

		switch out[i+1] {
		case '/':
			for ; i < len(out) && out[i] != '\n' && out[i] != '\r'; i++ {
				out[i] = ' '
			}
		case '*':
			end := strings.Index(content[i+2:], "*/")
			if end < 0 {
				return "", errors.New("unterminated block comment in JSONC")
			}
			stop := i + 2 + end + 2
			for ; i < stop; i++ {
				if out[i] != '\n' && out[i] != '\r' && out[i] != '\t' {
					out[i] = ' '
				}
			}
			i--
		}
	}
	return string(out), nil
}

func dropTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))
	var sc scanner

	for i := 0; i < len(content); i++ {
		ch := content[i]
		if !sc.inLiteral(ch) && ch == ',' {
			rest := strings.TrimLeft(content[i+1:], " \t\r\n")
			if rest != "" && (rest[0] == '}' || rest[0] == ']') {
				continue
			}
		}
		out.WriteByte(ch)
	}
	return out.String()
}
