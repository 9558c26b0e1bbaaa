package dialect

import "strconv"

// Postgres renders PostgreSQL syntax: "ident" quoting and $n placeholders.
type Postgres struct{}

// NewPostgres creates the PostgreSQL dialect.
func NewPostgres() Dialect {
	return Postgres{}
}

func (Postgres) QuoteIdentifier(name string) string {
	return `"` + name + `"`
}

func (Postgres) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

var _ Dialect = Postgres{}
