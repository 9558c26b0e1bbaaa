package backend

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"

	"github.com/stmtflow/stmtflow/dialect"
)

// Queryer is the slice of pgx a Pgx backend needs. It is satisfied by
// *pgxpool.Pool, pgx.Tx, *pgx.Conn, and the session driver that routes
// between pool and open transaction.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Pgx is a Backend over a PostgreSQL connection. Named parameters (:name)
// in the statement text are rewritten to positional placeholders. The
// result cursor is held open across Fetch calls so a paused statement
// resumes where it left off. Bulk mode is executed as a single pgx batch,
// one queued statement per collection element.
//
// Pgx serves a single data set; PostgreSQL simple queries produce one
// result table.
type Pgx struct {
	q Queryer
	d dialect.Dialect

	text   string
	params []Param
	bulk   bool
	sinks  []ColumnSink

	opened    bool
	exhausted bool
	rows      pgx.Rows
	cols      []Column
	affected  uint64

	pending    []any
	hasPending bool
}

// NewPgx creates a Pgx backend executing through q with the given dialect.
func NewPgx(q Queryer, d dialect.Dialect) *Pgx {
	return &Pgx{q: q, d: d}
}

// SetText implements Backend.
func (p *Pgx) SetText(text string) { p.text = text }

// BindParams implements Backend.
func (p *Pgx) BindParams(params []Param) { p.params = params }

// SetBulk implements Backend.
func (p *Pgx) SetBulk(bulk bool) { p.bulk = bulk }

// AttachSinks implements Backend. Only data set 0 exists.
func (p *Pgx) AttachSinks(dataSet int, sinks []ColumnSink) {
	if dataSet == 0 {
		p.sinks = sinks
	}
}

// Open implements Backend.
func (p *Pgx) Open(ctx context.Context) error {
	if p.opened {
		return nil
	}
	if p.text == "" {
		return errors.New("empty statement text")
	}
	if p.bulk {
		return p.openBulk(ctx)
	}

	sql, args, err := dialect.BindNamed(p.d, p.text, p.lookupScalar)
	if err != nil {
		return err
	}
	rows, err := p.q.Query(ctx, sql, args...)
	if err != nil {
		return err
	}
	p.rows = rows
	p.cols = nil
	for _, fd := range rows.FieldDescriptions() {
		p.cols = append(p.cols, Column{
			Name: fd.Name,
			Type: fmt.Sprintf("oid=%d", fd.DataTypeOID),
		})
	}
	p.opened = true
	return nil
}

// openBulk executes the statement once per collection element in a single
// batch round trip.
func (p *Pgx) openBulk(ctx context.Context) error {
	size, err := p.bulkSize()
	if err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for i := 0; i < size; i++ {
		sql, args, err := dialect.BindNamed(p.d, p.text, p.lookupAt(i))
		if err != nil {
			return err
		}
		batch.Queue(sql, args...)
	}

	br := p.q.SendBatch(ctx, batch)
	var affected uint64
	for i := 0; i < size; i++ {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return err
		}
		affected += uint64(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return err
	}
	p.affected = affected
	p.opened = true
	p.exhausted = true
	return nil
}

// bulkSize derives the batch size from the bulk parameter collections,
// which must all have the same length.
func (p *Pgx) bulkSize() (int, error) {
	size := -1
	for _, param := range p.params {
		if !param.Bulk {
			continue
		}
		rv := reflect.ValueOf(param.Value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return 0, fmt.Errorf("bulk parameter %q is not a collection", param.Name)
		}
		if size >= 0 && rv.Len() != size {
			return 0, fmt.Errorf("bulk parameter %q has %d elements, want %d", param.Name, rv.Len(), size)
		}
		size = rv.Len()
	}
	if size < 0 {
		return 0, errors.New("bulk mode requires at least one bulk parameter")
	}
	return size, nil
}

func (p *Pgx) lookupScalar(name string) (any, bool) {
	for _, param := range p.params {
		if param.Name == name {
			return param.Value, true
		}
	}
	return nil, false
}

// lookupAt resolves parameters for batch element i: bulk collections yield
// their i-th element, scalar parameters are broadcast unchanged.
func (p *Pgx) lookupAt(i int) dialect.Lookup {
	return func(name string) (any, bool) {
		for _, param := range p.params {
			if param.Name != name {
				continue
			}
			if !param.Bulk {
				return param.Value, true
			}
			rv := reflect.ValueOf(param.Value)
			if i >= rv.Len() {
				return nil, false
			}
			return rv.Index(i).Interface(), true
		}
		return nil, false
	}
}

// Columns implements Backend.
func (p *Pgx) Columns(dataSet int) []Column {
	if dataSet != 0 {
		return nil
	}
	return p.cols
}

// Fetch implements Backend.
func (p *Pgx) Fetch(ctx context.Context, dataSet int, ceiling uint64) (uint64, bool, error) {
	if !p.opened {
		return 0, false, errors.New("backend not opened")
	}
	if dataSet != 0 || p.exhausted {
		return 0, false, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	var n uint64
	for ceiling == Unbounded || n < ceiling {
		vals, ok, err := p.advance()
		if err != nil {
			return n, false, err
		}
		if !ok {
			return n, false, nil
		}
		p.push(vals)
		n++
	}

	// Ceiling hit: peek one row ahead so "more rows remain" is exact.
	vals, ok, err := p.advance()
	if err != nil {
		return n, false, err
	}
	if !ok {
		return n, false, nil
	}
	p.pending = vals
	p.hasPending = true
	return n, true, nil
}

// advance returns the next row, finishing the cursor when it is drained.
func (p *Pgx) advance() ([]any, bool, error) {
	if p.hasPending {
		p.hasPending = false
		return p.pending, true, nil
	}
	if !p.rows.Next() {
		err := p.rows.Err()
		// A SELECT tag counts returned rows, not affected ones.
		if ct := p.rows.CommandTag(); !ct.Select() {
			p.affected = uint64(ct.RowsAffected())
		}
		p.rows.Close()
		p.exhausted = true
		return nil, false, err
	}
	vals, err := p.rows.Values()
	if err != nil {
		return nil, false, err
	}
	return vals, true, nil
}

func (p *Pgx) push(vals []any) {
	for i, sink := range p.sinks {
		if i < len(vals) {
			sink.Push(vals[i])
		}
	}
}

// AffectedRows implements Backend.
func (p *Pgx) AffectedRows() uint64 { return p.affected }

// DataSetCount implements Backend.
func (p *Pgx) DataSetCount() int { return 1 }

// Reset implements Backend.
func (p *Pgx) Reset() error {
	if p.rows != nil && !p.exhausted {
		p.rows.Close()
	}
	p.rows = nil
	p.cols = nil
	p.text = ""
	p.params = nil
	p.bulk = false
	p.sinks = nil
	p.opened = false
	p.exhausted = false
	p.affected = 0
	p.pending = nil
	p.hasPending = false
	return nil
}

// Close implements Backend.
func (p *Pgx) Close() error {
	return p.Reset()
}

var _ Backend = (*Pgx)(nil)
