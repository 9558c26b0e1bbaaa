// Package backend defines the execution object a statement façade drives.
//
// A Backend is produced by a session, owned by exactly one statement at a
// time, and stays stateful across fetch calls so that a row limit can pause
// and resume a result cursor. Two implementations are provided: Memory, a
// canned-data backend for tests and embedding, and Pgx, backed by a
// PostgreSQL connection through pgx.
package backend

import "context"

// Unbounded is the fetch ceiling meaning "no limit".
const Unbounded uint64 = 0

// Column describes one result column of a data set.
type Column struct {
	Name string
	Type string
}

// ColumnByName finds a column by name in a data set's column metadata.
func ColumnByName(cols []Column, name string) (Column, bool) {
	for _, c := range cols {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnSink receives one column's values across fetched rows. Extraction
// buffers registered on a statement implement this.
type ColumnSink interface {
	Push(v any)
	Clear()
	Len() int
}

// Param is one input parameter for execution. A Bulk param carries a whole
// collection to be bound element-at-a-time in bulk mode.
type Param struct {
	Name  string
	Value any
	Bulk  bool
}

// Backend executes one statement's text against a database and feeds result
// rows into the sinks attached per data set.
//
// The contract mirrors the statement lifecycle: registration calls
// (SetText, BindParams, SetBulk, AttachSinks) configure the execution,
// Open begins it and makes column metadata available, and repeated Fetch
// calls consume the cursor. Fetch reports how many rows it delivered and
// whether more remain; a ceiling of Unbounded consumes everything.
// Errors from the underlying database are returned unmodified.
type Backend interface {
	SetText(text string)
	BindParams(params []Param)
	SetBulk(bulk bool)
	AttachSinks(dataSet int, sinks []ColumnSink)

	Open(ctx context.Context) error
	Columns(dataSet int) []Column
	Fetch(ctx context.Context, dataSet int, ceiling uint64) (count uint64, more bool, err error)

	AffectedRows() uint64
	DataSetCount() int

	// Reset abandons any execution in progress so the backend can be
	// opened again. Registrations are cleared; configured data survives.
	Reset() error
	Close() error
}
