package stmt

import (
	"container/list"
	"fmt"
	"slices"

	"github.com/stmtflow/stmtflow/backend"
)

// Storage selects the buffer implementation backing extraction buffers the
// statement allocates itself.
type Storage int

const (
	StorageDeque Storage = iota
	StorageVector
	StorageList
	StorageUnknown
)

// String returns the storage name.
func (s Storage) String() string {
	switch s {
	case StorageDeque:
		return "deque"
	case StorageVector:
		return "vector"
	case StorageList:
		return "list"
	default:
		return "unknown"
	}
}

// ParseStorage resolves a storage name.
func ParseStorage(name string) (Storage, error) {
	switch name {
	case "deque":
		return StorageDeque, nil
	case "vector":
		return StorageVector, nil
	case "list":
		return StorageList, nil
	default:
		return StorageUnknown, fmt.Errorf("unknown storage kind %q", name)
	}
}

// Buffer is a destination receiving one output column's values across
// rows. Implementations also satisfy backend.ColumnSink.
type Buffer interface {
	Push(v any)
	Clear()
	Len() int
	Values() []any
}

// NewBuffer allocates a buffer of the given storage kind.
func NewBuffer(kind Storage) Buffer {
	switch kind {
	case StorageVector:
		return &Vector{}
	case StorageList:
		return NewList()
	default:
		return &Deque{}
	}
}

// Deque is a double-ended-queue-backed buffer. It is the default storage.
type Deque struct {
	head  int
	items []any
}

func (d *Deque) Push(v any) { d.items = append(d.items, v) }

// PopFront removes and returns the oldest value.
func (d *Deque) PopFront() (any, bool) {
	if d.head >= len(d.items) {
		return nil, false
	}
	v := d.items[d.head]
	d.items[d.head] = nil
	d.head++
	if d.head == len(d.items) {
		d.head = 0
		d.items = d.items[:0]
	}
	return v, true
}

// PopBack removes and returns the newest value.
func (d *Deque) PopBack() (any, bool) {
	if d.head >= len(d.items) {
		return nil, false
	}
	v := d.items[len(d.items)-1]
	d.items = d.items[:len(d.items)-1]
	if d.head == len(d.items) {
		d.head = 0
		d.items = d.items[:0]
	}
	return v, true
}

func (d *Deque) Clear() {
	d.head = 0
	d.items = nil
}

func (d *Deque) Len() int { return len(d.items) - d.head }

func (d *Deque) Values() []any { return slices.Clone(d.items[d.head:]) }

// Vector is a contiguous-array-backed buffer.
type Vector struct {
	items []any
}

func (v *Vector) Push(val any)  { v.items = append(v.items, val) }
func (v *Vector) Clear()        { v.items = nil }
func (v *Vector) Len() int      { return len(v.items) }
func (v *Vector) Values() []any { return slices.Clone(v.items) }

// List is a linked-list-backed buffer.
type List struct {
	l *list.List
}

// NewList creates an empty List buffer.
func NewList() *List {
	return &List{l: list.New()}
}

func (b *List) Push(v any) { b.l.PushBack(v) }
func (b *List) Clear()     { b.l.Init() }
func (b *List) Len() int   { return b.l.Len() }

func (b *List) Values() []any {
	vals := make([]any, 0, b.l.Len())
	for e := b.l.Front(); e != nil; e = e.Next() {
		vals = append(vals, e.Value)
	}
	return vals
}

// storageOf reports the storage kind a buffer was allocated with.
func storageOf(b Buffer) Storage {
	switch b.(type) {
	case *Deque:
		return StorageDeque
	case *Vector:
		return StorageVector
	case *List:
		return StorageList
	default:
		return StorageUnknown
	}
}

// Extraction maps one result column to a destination buffer. The buffer is
// caller-owned when supplied through ExtractInto and statement-owned when
// allocated internally.
type Extraction struct {
	column string
	bulk   bool
	buf    Buffer
	owned  bool
}

// Extract creates an extraction for the named column whose buffer the
// statement allocates (per its storage kind) at registration.
func Extract(column string) *Extraction {
	return &Extraction{column: column}
}

// ExtractInto creates an extraction writing into a caller-owned buffer.
func ExtractInto(column string, buf Buffer) *Extraction {
	return &Extraction{column: column, buf: buf}
}

// BulkExtract creates a bulk extraction for the named column.
func BulkExtract(column string) *Extraction {
	return &Extraction{column: column, bulk: true}
}

// Column returns the column name the extraction is mapped to.
func (e *Extraction) Column() string { return e.column }

// Bulk reports whether the extraction receives whole collections.
func (e *Extraction) Bulk() bool { return e.bulk }

// Buffer returns the destination buffer, nil before registration for
// statement-allocated extractions.
func (e *Extraction) Buffer() Buffer { return e.buf }

// Values returns a snapshot of the extracted values.
func (e *Extraction) Values() []any {
	if e.buf == nil {
		return nil
	}
	return e.buf.Values()
}

func (e *Extraction) clone() *Extraction {
	ne := &Extraction{column: e.column, bulk: e.bulk, owned: true}
	if e.buf != nil {
		kind := storageOf(e.buf)
		if kind == StorageUnknown {
			kind = StorageDeque
		}
		ne.buf = NewBuffer(kind)
		for _, v := range e.buf.Values() {
			ne.buf.Push(v)
		}
	}
	return ne
}

// extractionRegistry holds the ordered per-data-set extraction lists.
type extractionRegistry struct {
	sets [][]*Extraction
}

func (r *extractionRegistry) add(set int, e *Extraction) {
	for len(r.sets) <= set {
		r.sets = append(r.sets, nil)
	}
	r.sets[set] = append(r.sets[set], e)
}

func (r *extractionRegistry) at(set int) []*Extraction {
	if set < 0 || set >= len(r.sets) {
		return nil
	}
	return r.sets[set]
}

func (r *extractionRegistry) count(set int) int {
	return len(r.at(set))
}

func (r *extractionRegistry) total() int {
	n := 0
	for _, set := range r.sets {
		n += len(set)
	}
	return n
}

func (r *extractionRegistry) clearAll() {
	r.sets = nil
}

// clearBuffers empties the destination buffers of one data set without
// unregistering the extractions.
func (r *extractionRegistry) clearBuffers(set int) {
	for _, e := range r.at(set) {
		if e.buf != nil {
			e.buf.Clear()
		}
	}
}

func (r *extractionRegistry) sinks(set int) []backend.ColumnSink {
	exts := r.at(set)
	if len(exts) == 0 {
		return nil
	}
	sinks := make([]backend.ColumnSink, 0, len(exts))
	for _, e := range exts {
		sinks = append(sinks, e.buf)
	}
	return sinks
}
