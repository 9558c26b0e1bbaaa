package stmt

import (
	"context"
	"errors"
	"fmt"

	"github.com/stmtflow/stmtflow/classify"
)

// checkBeginTransaction decides whether this execution needs an implicitly
// started transaction. The heuristic is best effort: when classification
// fails, no transaction is started and the session will not track the
// backend connection's transaction state; the failure is retrievable
// through ParseError.
func (s *Statement) checkBeginTransaction(ctx context.Context) error {
	if s.classifier == nil || s.sess == nil {
		return nil
	}
	if s.sess.Autocommit() || s.sess.InTransaction() {
		return nil
	}
	res, err := s.classifyNow()
	if err != nil || res.Count() == 0 {
		return nil
	}
	if res.All(classify.KindSelect) {
		return nil
	}
	if err := s.sess.Begin(ctx); err != nil {
		return fmt.Errorf("auto-begin transaction: %w", err)
	}
	return nil
}

// classifyNow classifies the accumulated text, memoizing the outcome until
// the text changes. Failures are recorded, never escalated.
func (s *Statement) classifyNow() (classify.Result, error) {
	if s.parsed != nil {
		return *s.parsed, nil
	}
	if s.parseErr != "" {
		return classify.Result{}, errors.New(s.parseErr)
	}
	res, err := s.classifier.Classify(s.renderedText())
	if err != nil {
		s.parseErr = err.Error()
		return classify.Result{}, err
	}
	s.parsed = &res
	return res, nil
}

func (s *Statement) invalidateParse() {
	s.parsed = nil
	s.parseErr = ""
}

// Parse classifies the accumulated text on demand. It answers Yes on
// success, No on a classification failure (see ParseError), and
// Unspecified when the statement has no classifier.
func (s *Statement) Parse() classify.Answer {
	if s.classifier == nil {
		return classify.Unspecified
	}
	_, err := s.classifyNow()
	return classify.Of(err == nil)
}

// ParseError returns the recorded classification failure, empty if none.
func (s *Statement) ParseError() string { return s.parseErr }

// StatementsCount returns the number of SQL statements in the accumulated
// text. The second return value is false when no classifier is configured
// or classification failed.
func (s *Statement) StatementsCount() (int, bool) {
	if s.classifier == nil {
		return 0, false
	}
	res, err := s.classifyNow()
	if err != nil {
		return 0, false
	}
	return res.Count(), true
}

// IsSelect reports whether the text consists only of SELECT statements.
func (s *Statement) IsSelect() classify.Answer { return s.isKind(classify.KindSelect) }

// IsInsert reports whether the text consists only of INSERT statements.
func (s *Statement) IsInsert() classify.Answer { return s.isKind(classify.KindInsert) }

// IsUpdate reports whether the text consists only of UPDATE statements.
func (s *Statement) IsUpdate() classify.Answer { return s.isKind(classify.KindUpdate) }

// IsDelete reports whether the text consists only of DELETE statements.
func (s *Statement) IsDelete() classify.Answer { return s.isKind(classify.KindDelete) }

// HasSelect reports whether the text contains a SELECT statement.
func (s *Statement) HasSelect() classify.Answer { return s.hasKind(classify.KindSelect) }

// HasInsert reports whether the text contains an INSERT statement.
func (s *Statement) HasInsert() classify.Answer { return s.hasKind(classify.KindInsert) }

// HasUpdate reports whether the text contains an UPDATE statement.
func (s *Statement) HasUpdate() classify.Answer { return s.hasKind(classify.KindUpdate) }

// HasDelete reports whether the text contains a DELETE statement.
func (s *Statement) HasDelete() classify.Answer { return s.hasKind(classify.KindDelete) }

func (s *Statement) isKind(k classify.Kind) classify.Answer {
	if s.classifier == nil {
		return classify.Unspecified
	}
	res, err := s.classifyNow()
	if err != nil {
		return classify.Unspecified
	}
	return classify.Of(res.All(k))
}

func (s *Statement) hasKind(k classify.Kind) classify.Answer {
	if s.classifier == nil {
		return classify.Unspecified
	}
	res, err := s.classifyNow()
	if err != nil {
		return classify.Unspecified
	}
	return classify.Of(res.Any(k))
}
