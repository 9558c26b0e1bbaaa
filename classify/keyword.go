package classify

import (
	"fmt"
	"strings"
)

// Keyword is the default Classifier. It splits the text into statements on
// unquoted semicolons, skips comments, and tags each statement by its first
// keyword. Anything outside the supported verb set is a classification
// failure, not a guess.
type Keyword struct{}

// NewKeyword creates a Keyword classifier.
func NewKeyword() *Keyword { return &Keyword{} }

var keywordKinds = map[string]Kind{
	"SELECT": KindSelect,
	"INSERT": KindInsert,
	"UPDATE": KindUpdate,
	"DELETE": KindDelete,
	"WITH":   KindSelect,
}

// Classify implements Classifier.
func (k *Keyword) Classify(sql string) (Result, error) {
	var res Result
	for _, raw := range splitStatements(sql) {
		word := firstWord(raw)
		if word == "" {
			continue
		}
		kind, ok := keywordKinds[strings.ToUpper(word)]
		if !ok {
			return Result{}, fmt.Errorf("unsupported leading keyword %q", word)
		}
		res.Kinds = append(res.Kinds, kind)
	}
	return res, nil
}

// splitStatements splits SQL text on semicolons that are not inside single
// quoted strings, double quoted identifiers, or comments.
func splitStatements(sql string) []string {
	var (
		parts   []string
		start   int
		inStr   bool
		inIdent bool
	)
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case inStr:
			if c == '\'' {
				inStr = false
			}
		case inIdent:
			if c == '"' {
				inIdent = false
			}
		case c == '\'':
			inStr = true
		case c == '"':
			inIdent = true
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			i += 2
			for i+1 < len(sql) && !(sql[i] == '*' && sql[i+1] == '/') {
				i++
			}
			i++
		case c == ';':
			parts = append(parts, sql[start:i])
			start = i + 1
		}
	}
	if start < len(sql) {
		parts = append(parts, sql[start:])
	}
	return parts
}

// firstWord returns the first bare word of a statement, skipping leading
// whitespace, comments and parentheses.
func firstWord(s string) string {
	i := 0
	for i < len(s) {
		switch {
		case s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r' || s[i] == '(':
			i++
		case s[i] == '-' && i+1 < len(s) && s[i+1] == '-':
			for i < len(s) && s[i] != '\n' {
				i++
			}
		case s[i] == '/' && i+1 < len(s) && s[i+1] == '*':
			i += 2
			for i+1 < len(s) && !(s[i] == '*' && s[i+1] == '/') {
				i++
			}
			i += 2
		default:
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			return s[i:j]
		}
	}
	return ""
}

func isWordByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

var _ Classifier = (*Keyword)(nil)
