// Package dialect renders dialect-specific SQL fragments: placeholder
// syntax, identifier quoting, and the rewriting of named parameters
// (:name) into the positional form a driver expects.
package dialect

import (
	"fmt"
	"strings"
)

// Dialect abstracts per-database SQL syntax differences.
type Dialect interface {
	QuoteIdentifier(name string) string
	Placeholder(n int) string
}

// Lookup resolves a named parameter to its value. The second return value
// reports whether the name is bound.
type Lookup func(name string) (any, bool)

// BindNamed rewrites :name placeholders in query into the dialect's
// positional placeholders and returns the rewritten query together with the
// argument list in placeholder order. A name may appear more than once; each
// occurrence gets its own placeholder and argument. Text inside single
// quoted strings, double quoted identifiers, line comments, and '::' casts
// is left untouched.
func BindNamed(d Dialect, query string, lookup Lookup) (string, []any, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.Grow(len(query))

	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			j := skipQuoted(query, i, '\'')
			sb.WriteString(query[i:j])
			i = j - 1
		case c == '"':
			j := skipQuoted(query, i, '"')
			sb.WriteString(query[i:j])
			i = j - 1
		case c == '-' && i+1 < len(query) && query[i+1] == '-':
			j := i
			for j < len(query) && query[j] != '\n' {
				j++
			}
			sb.WriteString(query[i:j])
			i = j - 1
		case c == ':' && i+1 < len(query) && query[i+1] == ':':
			// Postgres cast, not a parameter.
			sb.WriteString("::")
			i++
		case c == ':' && i+1 < len(query) && isNameByte(query[i+1]):
			j := i + 1
			for j < len(query) && isNameByte(query[j]) {
				j++
			}
			name := query[i+1 : j]
			val, ok := lookup(name)
			if !ok {
				return "", nil, fmt.Errorf("no binding for parameter %q", name)
			}
			args = append(args, val)
			sb.WriteString(d.Placeholder(len(args)))
			i = j - 1
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), args, nil
}

// skipQuoted returns the index just past the closing quote, honoring
// doubled-quote escapes.
func skipQuoted(s string, start int, quote byte) int {
	i := start + 1
	for i < len(s) {
		if s[i] == quote {
			if i+1 < len(s) && s[i+1] == quote {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return i
}

func isNameByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
