package dialect

// MySQL renders MySQL syntax: `ident` quoting and ? placeholders.
type MySQL struct{}

// NewMySQL creates the MySQL dialect.
func NewMySQL() Dialect {
	return MySQL{}
}

func (MySQL) QuoteIdentifier(name string) string {
	return "`" + name + "`"
}

func (MySQL) Placeholder(n int) string {
	return "?"
}

var _ Dialect = MySQL{}
