package format

import (
	"fmt"
	"strings"
)

// Formatter renders result rows for textual display.
// A Formatter is owned by the statement that uses it unless the caller
// installed its own instance.
type Formatter interface {
	// FormatNames renders the column name header for one data set.
	FormatNames(names []string) string

	// FormatRow renders the values of a single row.
	FormatRow(values []any) string
}

// Simple is the default Formatter. It renders rows as separator-joined
// values followed by a newline, with NULL for nil values.
type Simple struct {
	Separator string
}

// NewSimple creates a Simple formatter with a tab separator.
func NewSimple() *Simple {
	return &Simple{Separator: "\t"}
}

// FormatNames renders the header line.
func (f *Simple) FormatNames(names []string) string {
	return strings.Join(names, f.sep()) + "\n"
}

// FormatRow renders one row.
func (f *Simple) FormatRow(values []any) string {
	var sb strings.Builder
	for i, v := range values {
		if i > 0 {
			sb.WriteString(f.sep())
		}
		sb.WriteString(FormatValue(v))
	}
	sb.WriteString("\n")
	return sb.String()
}

func (f *Simple) sep() string {
	if f.Separator == "" {
		return "\t"
	}
	return f.Separator
}

// FormatValue renders a single column value.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

var _ Formatter = (*Simple)(nil)
