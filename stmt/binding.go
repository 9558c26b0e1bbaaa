package stmt

import (
	"reflect"

	"github.com/stmtflow/stmtflow/backend"
)

// Binding is a named input parameter substituted into the statement at
// execution time. A binding either references caller-owned storage (Use)
// or carries a value copied at registration (Copy). Several bindings may
// share a name; RemoveBind removes them together.
type Binding struct {
	name  string
	value any
	byRef bool
	bulk  bool
}

// Use creates a binding that references caller-owned storage. ptr must be
// a pointer; the value is read at execution time, so later writes through
// the pointer are visible to the statement.
func Use(name string, ptr any) *Binding {
	return &Binding{name: name, value: ptr, byRef: true}
}

// Copy creates a binding that carries v as copied at this call.
func Copy(name string, v any) *Binding {
	return &Binding{name: name, value: v}
}

// BulkUse creates a bulk binding referencing a caller-owned collection.
func BulkUse(name string, slicePtr any) *Binding {
	return &Binding{name: name, value: slicePtr, byRef: true, bulk: true}
}

// BulkCopy creates a bulk binding carrying the given collection.
func BulkCopy(name string, collection any) *Binding {
	return &Binding{name: name, value: collection, bulk: true}
}

// Name returns the binding name.
func (b *Binding) Name() string { return b.name }

// Bulk reports whether the binding carries a whole collection.
func (b *Binding) Bulk() bool { return b.bulk }

// Value returns the bound value, dereferencing caller-owned storage.
func (b *Binding) Value() any {
	if !b.byRef {
		return b.value
	}
	rv := reflect.ValueOf(b.value)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() {
		return rv.Elem().Interface()
	}
	return b.value
}

func (b *Binding) param() backend.Param {
	return backend.Param{Name: b.name, Value: b.Value(), Bulk: b.bulk}
}

// bindingRegistry is the ordered collection of a statement's bindings.
type bindingRegistry struct {
	items []*Binding
}

func (r *bindingRegistry) add(b *Binding) {
	r.items = append(r.items, b)
}

// removeNamed drops every binding with the given name and returns how many
// were removed.
func (r *bindingRegistry) removeNamed(name string) int {
	kept := r.items[:0]
	removed := 0
	for _, b := range r.items {
		if b.name == name {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	r.items = kept
	return removed
}

func (r *bindingRegistry) clear() {
	r.items = nil
}

func (r *bindingRegistry) len() int {
	return len(r.items)
}

func (r *bindingRegistry) params() []backend.Param {
	if len(r.items) == 0 {
		return nil
	}
	params := make([]backend.Param, 0, len(r.items))
	for _, b := range r.items {
		params = append(params, b.param())
	}
	return params
}
