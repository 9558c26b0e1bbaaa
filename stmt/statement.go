// Package stmt implements a client-side SQL statement façade: it
// accumulates statement text and parameters, drives execution against a
// backend, and exposes the result as a resumable, possibly paged, possibly
// asynchronous operation.
//
// A Statement is created bound to a session. Callers append text
// fragments, register bindings and extractions, optionally set a row limit
// or prefetch range, and then execute. A limited statement pages: each
// Execute call fetches up to the limit and pauses while the backend
// reports more rows; an unlimited statement is done after a single call.
// Execution can be made asynchronous, in which case one worker per
// statement runs the step and Wait collects the count.
package stmt

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/stmtflow/stmtflow/backend"
	"github.com/stmtflow/stmtflow/classify"
	"github.com/stmtflow/stmtflow/format"
	"github.com/stmtflow/stmtflow/session"
)

// CurrentDataSet selects the statement's current data set in per-data-set
// accessors.
const CurrentDataSet = -1

const defaultClassifierCacheSize = 256

// Statement is the façade instance holding accumulated text, bindings,
// extractions, and execution state.
//
// A statement is not safe for concurrent mutation. While an asynchronous
// execution is outstanding and unsynchronized, mutating text, bindings,
// extractions, or storage is the caller's responsibility to avoid; Clone
// is the one operation that synchronizes automatically. The internal lock
// guards only the async flag and the outstanding result handle.
type Statement struct {
	id   ulid.ULID
	sess *session.Session
	be   backend.Backend

	classifier classify.Classifier
	formatter  format.Formatter

	text strings.Builder
	args []any

	binds    bindingRegistry
	extracts extractionRegistry
	storage  Storage
	bulk     bool

	pager  pager
	opened bool
	curSet int

	lastFetched []uint64
	subTotal    []uint64
	affected    uint64

	parsed   *classify.Result
	parseErr string

	// mu guards only the async flag and the result handle.
	mu     sync.Mutex
	async  bool
	result *Result
}

// New creates a Statement bound to the given session, with deque storage,
// the default row formatter, and the default cached keyword classifier.
func New(sess *session.Session) (*Statement, error) {
	be, err := sess.NewBackend()
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}
	return &Statement{
		id:         ulid.Make(),
		sess:       sess,
		be:         be,
		classifier: classify.NewCached(classify.NewKeyword(), defaultClassifierCacheSize),
		formatter:  format.NewSimple(),
		storage:    StorageDeque,
	}, nil
}

// ID returns the statement's instance identity.
func (s *Statement) ID() string { return s.id.String() }

// String identifies the statement for diagnostics.
func (s *Statement) String() string {
	return fmt.Sprintf("statement %s (%s)", s.id, s.State())
}

// Append accumulates a text fragment. It has no execution side effect.
func (s *Statement) Append(fragment string) *Statement {
	s.text.WriteString(fragment)
	s.invalidateParse()
	return s
}

// Arg adds values for placeholder formatting of the accumulated text. The
// values are applied with fmt.Sprintf once, at execution time.
func (s *Statement) Arg(values ...any) *Statement {
	s.args = append(s.args, values...)
	return s
}

// Text returns the accumulated statement text as currently held; formatting
// arguments not yet applied are not reflected.
func (s *Statement) Text() string { return s.text.String() }

// renderedText applies pending formatting arguments into the accumulated
// text and returns it.
func (s *Statement) renderedText() string {
	if len(s.args) > 0 {
		formatted := fmt.Sprintf(s.text.String(), s.args...)
		s.text.Reset()
		s.text.WriteString(formatted)
		s.args = nil
	}
	return s.text.String()
}

// AddBind registers an input binding. It fails with ErrModeConflict when
// the binding's bulk flag disagrees with the statement's mode.
func (s *Statement) AddBind(b *Binding) error {
	if err := s.checkBindMode(b.Bulk(), "binding", b.Name()); err != nil {
		return err
	}
	s.binds.add(b)
	return nil
}

// RemoveBind removes all bindings with the given name. It is a no-op when
// none match.
func (s *Statement) RemoveBind(name string) {
	s.binds.removeNamed(name)
}

// BindCount returns the number of registered bindings.
func (s *Statement) BindCount() int { return s.binds.len() }

// AddExtract registers an extraction for the current data set.
func (s *Statement) AddExtract(e *Extraction) error {
	return s.AddExtractTo(s.curSet, e)
}

// AddExtractTo registers an extraction for the given data set. A
// statement-allocated buffer is created here, per the storage kind. It
// fails with ErrModeConflict when the extraction's bulk flag disagrees
// with the statement's mode.
func (s *Statement) AddExtractTo(dataSet int, e *Extraction) error {
	if err := s.checkBindMode(e.Bulk(), "extraction", e.Column()); err != nil {
		return err
	}
	if dataSet < 0 {
		return fmt.Errorf("invalid data set %d", dataSet)
	}
	if e.buf == nil {
		e.buf = NewBuffer(s.storage)
		e.owned = true
	}
	s.extracts.add(dataSet, e)
	return nil
}

// Extractions returns the extractions registered for a data set;
// CurrentDataSet selects the current one.
func (s *Statement) Extractions(dataSet int) []*Extraction {
	return s.extracts.at(s.resolveSet(dataSet))
}

// ExtractionCount returns the number of extraction buffers associated with
// the current data set.
func (s *Statement) ExtractionCount() int {
	return s.extracts.count(s.curSet)
}

// SetLimit caps the number of rows each execution step fetches.
func (s *Statement) SetLimit(l Limit) *Statement {
	s.pager.setLimit(l)
	return s
}

// SetRange installs a prefetch range.
func (s *Statement) SetRange(r Range) *Statement {
	s.pager.setRange(r)
	return s
}

// Limit returns the current upper limit.
func (s *Statement) Limit() Limit { return s.pager.upper }

// CanModifyStorage reports whether the storage kind may change: no
// extraction buffers registered and the statement Initialized or Done.
func (s *Statement) CanModifyStorage() bool {
	return s.extracts.total() == 0 && (s.Initialized() || s.Done())
}

// SetStorage selects the buffer implementation for statement-allocated
// extraction buffers. It fails with ErrModeConflict while extraction
// buffers exist or a paging step is in progress.
func (s *Statement) SetStorage(kind Storage) error {
	if kind == StorageUnknown {
		return fmt.Errorf("cannot select unknown storage kind")
	}
	if !s.CanModifyStorage() {
		return fmt.Errorf("%w: storage not modifiable with %d extraction(s) in state %s",
			ErrModeConflict, s.extracts.total(), s.State())
	}
	s.storage = kind
	return nil
}

// SetStorageName selects the storage kind by name: "deque", "vector" or
// "list".
func (s *Statement) SetStorageName(name string) error {
	kind, err := ParseStorage(name)
	if err != nil {
		return err
	}
	return s.SetStorage(kind)
}

// Storage returns the storage kind.
func (s *Statement) Storage() Storage { return s.storage }

// StorageName returns the storage kind's name.
func (s *Statement) StorageName() string { return s.storage.String() }

// SetFormatter installs a row formatter; the statement owns it from here.
func (s *Statement) SetFormatter(f format.Formatter) {
	if f != nil {
		s.formatter = f
	}
}

// Formatter returns the statement's row formatter.
func (s *Statement) Formatter() format.Formatter { return s.formatter }

// SetClassifier installs the statement classifier. Passing nil removes
// classification: all classification queries answer unspecified and no
// transaction is auto-started.
func (s *Statement) SetClassifier(c classify.Classifier) {
	s.classifier = c
	s.invalidateParse()
}

// SetAsync sets the asynchronous flag. Once set, the statement stays
// asynchronous for all subsequent Execute calls until unset.
func (s *Statement) SetAsync(on bool) {
	s.mu.Lock()
	s.async = on
	s.mu.Unlock()
}

// IsAsync reports whether the statement is marked for asynchronous
// execution.
func (s *Statement) IsAsync() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.async
}

// Execute runs one paging step. It returns the number of rows extracted
// (for row-returning statements) or rows affected (for all others). When
// the statement is marked asynchronous the call dispatches the step and
// returns 0 immediately; the true count is obtained through Wait.
//
// With resetBuffers true (the usual mode), extraction buffers are emptied
// before fetching; with false, fetched rows append to their current
// contents. The flag has no meaning for unlimited statements, which
// consume everything in one call.
func (s *Statement) Execute(ctx context.Context, resetBuffers bool) (uint64, error) {
	if s.IsAsync() {
		s.dispatch(ctx, resetBuffers)
		return 0, nil
	}
	return s.doExecute(ctx, resetBuffers)
}

// ExecuteDirect replaces the accumulated text with query and executes
// synchronously, regardless of the async flag. The transaction heuristic
// of Execute applies.
func (s *Statement) ExecuteDirect(ctx context.Context, query string) (uint64, error) {
	s.synchronize()
	if err := s.rewind(); err != nil {
		return 0, err
	}
	s.text.Reset()
	s.text.WriteString(query)
	s.args = nil
	s.invalidateParse()
	return s.doExecute(ctx, true)
}

// doExecute performs one synchronous paging step across all data sets.
func (s *Statement) doExecute(ctx context.Context, resetBuffers bool) (uint64, error) {
	if s.pager.state == Done {
		if err := s.rewind(); err != nil {
			return 0, err
		}
	}
	if !s.opened {
		if err := s.open(ctx); err != nil {
			return 0, err
		}
	}

	ceiling := s.pager.ceiling()
	sets := s.setCount()
	var total uint64
	more := false
	for set := 0; set < sets; set++ {
		s.ensureExtractions(set)
		if resetBuffers {
			s.extracts.clearBuffers(set)
		}
		n, m, err := s.be.Fetch(ctx, set, ceiling)
		if err != nil {
			return n, err
		}
		if s.pager.upper.Hard() && ceiling != backend.Unbounded && n > ceiling {
			return n, fmt.Errorf("backend delivered %d rows past the hard limit of %d", n, ceiling)
		}
		s.lastFetched[set] = n
		s.subTotal[set] += n
		total += n
		more = more || m
	}
	s.affected = s.be.AffectedRows()

	if err := s.pager.observe(total, more); err != nil {
		return total, err
	}
	if total == 0 && s.ColumnsExtracted(CurrentDataSet) == 0 {
		return s.affected, nil
	}
	return total, nil
}

// open starts a fresh execution: runs the transaction gate, hands the
// accumulated text and resources to the backend, and sizes the per-set
// counters.
func (s *Statement) open(ctx context.Context) error {
	if err := s.checkBeginTransaction(ctx); err != nil {
		return err
	}
	s.be.SetText(s.renderedText())
	s.be.BindParams(s.binds.params())
	s.be.SetBulk(s.bulk)
	for set := 0; set < len(s.extracts.sets); set++ {
		if sinks := s.extracts.sinks(set); len(sinks) > 0 {
			s.be.AttachSinks(set, sinks)
		}
	}
	if err := s.be.Open(ctx); err != nil {
		return err
	}
	sets := s.setCount()
	s.lastFetched = make([]uint64, sets)
	s.subTotal = make([]uint64, sets)
	s.opened = true
	return nil
}

// ensureExtractions creates statement-owned default buffers for a data set
// that has result columns but no registered extractions.
func (s *Statement) ensureExtractions(set int) {
	if s.extracts.count(set) > 0 {
		return
	}
	cols := s.be.Columns(set)
	if len(cols) == 0 {
		return
	}
	for _, col := range cols {
		e := &Extraction{column: col.Name, bulk: s.bulk, buf: NewBuffer(s.storage), owned: true}
		s.extracts.add(set, e)
	}
	s.be.AttachSinks(set, s.extracts.sinks(set))
}

// rewind abandons the current execution so the statement can run again
// from the start. Registrations and configuration survive.
func (s *Statement) rewind() error {
	if err := s.be.Reset(); err != nil {
		return err
	}
	s.pager.reset()
	s.opened = false
	for i := range s.subTotal {
		s.subTotal[i] = 0
		s.lastFetched[i] = 0
	}
	return nil
}

func (s *Statement) setCount() int {
	if n := s.be.DataSetCount(); n > 1 {
		return n
	}
	return 1
}

// Reset returns the statement to Initialized and clears bindings,
// extractions, formatting arguments, and the accumulated text. Limits,
// storage kind, and the async flag survive. An outstanding asynchronous
// execution is waited out first.
func (s *Statement) Reset() error {
	s.synchronize()
	if err := s.be.Reset(); err != nil {
		return err
	}
	s.text.Reset()
	s.args = nil
	s.binds.clear()
	s.extracts.clearAll()
	s.bulk = false
	s.pager.reset()
	s.opened = false
	s.curSet = 0
	s.lastFetched = nil
	s.subTotal = nil
	s.affected = 0
	s.invalidateParse()
	return nil
}

// ResetSession resets the statement and rebinds it to a new session,
// producing a fresh backend from it.
func (s *Statement) ResetSession(sess *session.Session) error {
	if err := s.Reset(); err != nil {
		return err
	}
	be, err := sess.NewBackend()
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}
	_ = s.be.Close()
	s.sess = sess
	s.be = be
	return nil
}

// Session returns the session the statement is bound to.
func (s *Statement) Session() *session.Session { return s.sess }

// State returns the execution state.
func (s *Statement) State() State { return s.pager.state }

// Initialized reports whether the statement has not executed yet.
func (s *Statement) Initialized() bool { return s.pager.state == Initialized }

// Paused reports whether a limit stopped fetching with rows remaining.
func (s *Statement) Paused() bool { return s.pager.state == Paused }

// Done reports whether the statement was completely executed.
func (s *Statement) Done() bool { return s.pager.state == Done }

// AffectedRowCount returns the number of rows affected by the last
// execution of a non-returning statement.
func (s *Statement) AffectedRowCount() uint64 { return s.affected }

// RowsExtracted returns the number of rows delivered for the data set
// during the last execution step; CurrentDataSet selects the current one.
func (s *Statement) RowsExtracted(dataSet int) uint64 {
	set := s.resolveSet(dataSet)
	if set < 0 || set >= len(s.lastFetched) {
		return 0
	}
	return s.lastFetched[set]
}

// SubTotalRowCount returns the number of rows extracted so far for the
// data set, across all execution steps.
func (s *Statement) SubTotalRowCount(dataSet int) uint64 {
	set := s.resolveSet(dataSet)
	if set < 0 || set >= len(s.subTotal) {
		return 0
	}
	return s.subTotal[set]
}

// ColumnsExtracted returns the number of columns delivered for the data
// set.
func (s *Statement) ColumnsExtracted(dataSet int) int {
	set := s.resolveSet(dataSet)
	if n := s.extracts.count(set); n > 0 {
		return n
	}
	return len(s.be.Columns(set))
}

// Columns returns the column metadata of a data set, available once the
// statement has begun executing.
func (s *Statement) Columns(dataSet int) []backend.Column {
	return s.be.Columns(s.resolveSet(dataSet))
}

// ColumnByName returns the metadata of the named result column of a data
// set.
func (s *Statement) ColumnByName(dataSet int, name string) (backend.Column, bool) {
	return backend.ColumnByName(s.be.Columns(s.resolveSet(dataSet)), name)
}

// DataSetCount returns the number of data sets the statement produces.
func (s *Statement) DataSetCount() int { return s.setCount() }

// NextDataSet makes the next data set current and returns its index.
func (s *Statement) NextDataSet() (int, error) {
	if s.curSet+1 >= s.setCount() {
		return s.curSet, fmt.Errorf("no data set past %d", s.curSet)
	}
	s.curSet++
	return s.curSet, nil
}

// PreviousDataSet makes the previous data set current and returns its
// index.
func (s *Statement) PreviousDataSet() (int, error) {
	if s.curSet == 0 {
		return 0, fmt.Errorf("no data set before the first")
	}
	s.curSet--
	return s.curSet, nil
}

// HasMoreDataSets reports whether data sets remain past the current one.
func (s *Statement) HasMoreDataSets() bool {
	return s.curSet+1 < s.setCount()
}

func (s *Statement) resolveSet(dataSet int) int {
	if dataSet == CurrentDataSet {
		return s.curSet
	}
	return dataSet
}

// WriteRows renders the buffered rows of a data set through the
// statement's formatter: one header line, then one line per row.
func (s *Statement) WriteRows(w io.Writer, dataSet int) error {
	set := s.resolveSet(dataSet)
	exts := s.extracts.at(set)
	if len(exts) == 0 {
		return fmt.Errorf("no extractions for data set %d", set)
	}

	names := make([]string, len(exts))
	columns := make([][]any, len(exts))
	rows := 0
	for i, e := range exts {
		names[i] = e.Column()
		columns[i] = e.Values()
		if len(columns[i]) > rows {
			rows = len(columns[i])
		}
	}
	if _, err := io.WriteString(w, s.formatter.FormatNames(names)); err != nil {
		return err
	}
	for r := 0; r < rows; r++ {
		vals := make([]any, len(columns))
		for c := range columns {
			if r < len(columns[c]) {
				vals[c] = columns[c][r]
			}
		}
		if _, err := io.WriteString(w, s.formatter.FormatRow(vals)); err != nil {
			return err
		}
	}
	return nil
}

// Clone copies the statement. A clone of a statement with an outstanding,
// unsynchronized asynchronous execution first waits for it to complete, so
// clone and original observe identical final counts and state. The clone
// holds a fresh backend from the same session: its buffered rows and
// counters are snapshots, and executing it again starts a cursor of its
// own.
func (s *Statement) Clone() (*Statement, error) {
	s.synchronize()

	clone, err := New(s.sess)
	if err != nil {
		return nil, err
	}
	clone.classifier = s.classifier
	clone.formatter = s.formatter
	clone.text.WriteString(s.text.String())
	clone.args = slices.Clone(s.args)
	clone.storage = s.storage
	clone.bulk = s.bulk
	clone.pager = s.pager
	clone.curSet = s.curSet
	clone.affected = s.affected
	clone.lastFetched = slices.Clone(s.lastFetched)
	clone.subTotal = slices.Clone(s.subTotal)
	clone.parseErr = s.parseErr
	if s.parsed != nil {
		res := classify.Result{Kinds: slices.Clone(s.parsed.Kinds)}
		clone.parsed = &res
	}
	clone.binds.items = slices.Clone(s.binds.items)
	for set, exts := range s.extracts.sets {
		for _, e := range exts {
			clone.extracts.add(set, e.clone())
		}
	}
	clone.SetAsync(s.IsAsync())
	return clone, nil
}
