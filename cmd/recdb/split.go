package main

import (
	"errors"
	"strings"
	"unicode"
)

var errUnterminatedQuote = errors.New("unterminated quote")

// splitArgs splits a shell line on whitespace. Double quotes group text
// containing spaces and may appear anywhere in a word (bar="the value");
// inside quotes a backslash escapes the next character.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inWord  bool
		inQuote bool
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false

		case inQuote && r == '\\':
			escaped = true

		case r == '"':
			inQuote = !inQuote
			inWord = true

		case !inQuote && unicode.IsSpace(r):
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}

		default:
			cur.WriteRune(r)
			inWord = true
		}
	}

	if inQuote || escaped {
		return nil, errUnterminatedQuote
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}
