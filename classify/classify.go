// Package classify provides best-effort SQL statement classification.
//
// Classification is used by the statement façade to decide whether an
// execution needs an implicit transaction. It is deliberately shallow: a
// statement is split into its component statements and each one is tagged by
// its leading keyword. Dialect-specific constructs may defeat it, in which
// case the failure is reported as an error value and the caller degrades to
// an unspecified result.
package classify

import "fmt"

// Kind is the classified type of a single SQL statement.
type Kind int

const (
	KindSelect Kind = iota
	KindInsert
	KindUpdate
	KindDelete
)

// String returns the SQL verb for the kind.
func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "SELECT"
	case KindInsert:
		return "INSERT"
	case KindUpdate:
		return "UPDATE"
	case KindDelete:
		return "DELETE"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Answer is a tri-state classification answer. The zero value is
// Unspecified, which a caller must never fold into false implicitly.
type Answer int

const (
	Unspecified Answer = iota
	No
	Yes
)

// Known reports whether the answer carries a value.
func (a Answer) Known() bool { return a != Unspecified }

// Bool returns true only for Yes.
func (a Answer) Bool() bool { return a == Yes }

// String returns a readable form of the answer.
func (a Answer) String() string {
	switch a {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unspecified"
	}
}

// Of converts a bool into a definite Answer.
func Of(b bool) Answer {
	if b {
		return Yes
	}
	return No
}

// Result holds the per-statement kinds of one classified SQL text.
type Result struct {
	Kinds []Kind
}

// Count returns the number of statements found in the text.
func (r Result) Count() int { return len(r.Kinds) }

// All reports whether every statement is of the given kind. It is false
// for an empty result.
func (r Result) All(k Kind) bool {
	if len(r.Kinds) == 0 {
		return false
	}
	for _, got := range r.Kinds {
		if got != k {
			return false
		}
	}
	return true
}

// Any reports whether at least one statement is of the given kind.
func (r Result) Any(k Kind) bool {
	for _, got := range r.Kinds {
		if got == k {
			return true
		}
	}
	return false
}

// Classifier classifies SQL text. Implementations must return an error for
// text they cannot classify instead of guessing; they must not panic.
type Classifier interface {
	Classify(sql string) (Result, error)
}
