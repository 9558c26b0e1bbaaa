package backend

import (
	"context"
	"errors"
	"sync"
)

// DataSet is one canned result table served by the Memory backend.
type DataSet struct {
	Columns []Column
	Rows    [][]any
}

// Memory is an in-memory Backend serving canned data sets. It honors the
// full paging contract, so statements driving it behave exactly as they
// would against a live database. It is the backend used throughout the
// test suite and is exported for use in callers' own tests.
type Memory struct {
	mu sync.Mutex

	sets     []DataSet
	affected uint64
	failWith error

	text   string
	params []Param
	bulk   bool
	sinks  map[int][]ColumnSink

	opened bool
	pos    []int

	opens      int
	lastText   string
	lastParams []Param
	lastBulk   bool
}

// NewMemory creates a Memory backend serving the given data sets.
func NewMemory(sets ...DataSet) *Memory {
	return &Memory{
		sets:  sets,
		sinks: make(map[int][]ColumnSink),
	}
}

// SetAffected configures the affected-row count the backend reports.
func (m *Memory) SetAffected(n uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.affected = n
}

// FailWith makes the next Open return err.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// SetText implements Backend.
func (m *Memory) SetText(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
}

// BindParams implements Backend.
func (m *Memory) BindParams(params []Param) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params = params
}

// SetBulk implements Backend.
func (m *Memory) SetBulk(bulk bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulk = bulk
}

// AttachSinks implements Backend. Sinks replace any previously attached for
// the data set.
func (m *Memory) AttachSinks(dataSet int, sinks []ColumnSink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinks[dataSet] = sinks
}

// Open implements Backend.
func (m *Memory) Open(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.opened {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.failWith != nil {
		err := m.failWith
		m.failWith = nil
		return err
	}
	if m.text == "" {
		return errors.New("empty statement text")
	}
	m.opened = true
	m.pos = make([]int, len(m.sets))
	m.opens++
	m.lastText = m.text
	m.lastParams = m.params
	m.lastBulk = m.bulk
	return nil
}

// Columns implements Backend.
func (m *Memory) Columns(dataSet int) []Column {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dataSet < 0 || dataSet >= len(m.sets) {
		return nil
	}
	return m.sets[dataSet].Columns
}

// Fetch implements Backend.
func (m *Memory) Fetch(ctx context.Context, dataSet int, ceiling uint64) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.opened {
		return 0, false, errors.New("backend not opened")
	}
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if dataSet < 0 || dataSet >= len(m.sets) {
		return 0, false, nil
	}

	rows := m.sets[dataSet].Rows
	sinks := m.sinks[dataSet]
	var n uint64
	for m.pos[dataSet] < len(rows) {
		if ceiling != Unbounded && n >= ceiling {
			break
		}
		row := rows[m.pos[dataSet]]
		for i, sink := range sinks {
			if i < len(row) {
				sink.Push(row[i])
			}
		}
		m.pos[dataSet]++
		n++
	}
	return n, m.pos[dataSet] < len(rows), nil
}

// AffectedRows implements Backend.
func (m *Memory) AffectedRows() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.affected
}

// DataSetCount implements Backend.
func (m *Memory) DataSetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sets)
}

// Reset implements Backend.
func (m *Memory) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opened = false
	m.pos = nil
	m.text = ""
	m.params = nil
	m.bulk = false
	m.sinks = make(map[int][]ColumnSink)
	return nil
}

// Close implements Backend.
func (m *Memory) Close() error {
	return m.Reset()
}

// OpenCount returns how many times the backend has been opened.
func (m *Memory) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

// LastText returns the statement text of the most recent Open.
func (m *Memory) LastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastText
}

// LastParams returns the parameters of the most recent Open.
func (m *Memory) LastParams() []Param {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastParams
}

// LastBulk reports whether the most recent Open was in bulk mode.
func (m *Memory) LastBulk() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastBulk
}

var _ Backend = (*Memory)(nil)
