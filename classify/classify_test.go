package classify

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordClassify(t *testing.T) {
	k := NewKeyword()

	tests := []struct {
		name string
		sql  string
		want []Kind
	}{
		{"single select", "SELECT * FROM t", []Kind{KindSelect}},
		{"lowercase verb", "select 1", []Kind{KindSelect}},
		{"two statements", "SELECT a FROM t; INSERT INTO t VALUES (1);", []Kind{KindSelect, KindInsert}},
		{"trailing semicolon only", "DELETE FROM t;", []Kind{KindDelete}},
		{"cte counts as select", "WITH x AS (SELECT 1) SELECT * FROM x", []Kind{KindSelect}},
		{"leading whitespace and parens", "  (SELECT 1)", []Kind{KindSelect}},
		{"leading line comment", "-- fetch everything\nSELECT * FROM t", []Kind{KindSelect}},
		{"leading block comment", "/* audit */ UPDATE t SET a = 1", []Kind{KindUpdate}},
		{"semicolon inside string", "SELECT 'a;b' FROM t", []Kind{KindSelect}},
		{"semicolon inside identifier", `SELECT "a;b" FROM t`, []Kind{KindSelect}},
		{"semicolon inside comment", "SELECT 1 -- no; split here", []Kind{KindSelect}},
		{"empty text", "", nil},
		{"only semicolons", " ; ; ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := k.Classify(tt.sql)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, res.Kinds); diff != "" {
				t.Errorf("kinds mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestKeywordClassifyFailure(t *testing.T) {
	k := NewKeyword()

	for _, sql := range []string{
		"CREATE TABLE t (a int)",
		"GRANT ALL ON t TO alice",
		"SELECT 1; DROP TABLE t;",
	} {
		_, err := k.Classify(sql)
		assert.Error(t, err, sql)
	}
}

func TestResultQueries(t *testing.T) {
	res := Result{Kinds: []Kind{KindSelect, KindInsert}}
	assert.Equal(t, 2, res.Count())
	assert.True(t, res.Any(KindSelect))
	assert.True(t, res.Any(KindInsert))
	assert.False(t, res.Any(KindDelete))
	assert.False(t, res.All(KindSelect))

	only := Result{Kinds: []Kind{KindSelect, KindSelect}}
	assert.True(t, only.All(KindSelect))

	empty := Result{}
	assert.False(t, empty.All(KindSelect))
	assert.False(t, empty.Any(KindSelect))
}

func TestAnswer(t *testing.T) {
	assert.False(t, Unspecified.Known())
	assert.True(t, Yes.Known())
	assert.True(t, No.Known())
	assert.True(t, Yes.Bool())
	assert.False(t, No.Bool())
	assert.False(t, Unspecified.Bool())
	assert.Equal(t, Yes, Of(true))
	assert.Equal(t, No, Of(false))
	assert.Equal(t, "unspecified", Unspecified.String())
}

// countingClassifier counts how many times the inner classifier is hit.
type countingClassifier struct {
	calls int
	fail  error
}

func (c *countingClassifier) Classify(sql string) (Result, error) {
	c.calls++
	if c.fail != nil {
		return Result{}, c.fail
	}
	return Result{Kinds: []Kind{KindSelect}}, nil
}

func TestCachedHitsInnerOnce(t *testing.T) {
	inner := &countingClassifier{}
	c := NewCached(inner, 8)

	for i := 0; i < 5; i++ {
		res, err := c.Classify("SELECT 1")
		require.NoError(t, err)
		assert.Equal(t, 1, res.Count())
	}
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, c.Len())

	_, err := c.Classify("SELECT 2")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 2, c.Len())
}

func TestCachedCachesFailures(t *testing.T) {
	inner := &countingClassifier{fail: errors.New("cannot classify")}
	c := NewCached(inner, 8)

	_, err := c.Classify("EXPLAIN SELECT 1")
	require.EqualError(t, err, "cannot classify")

	_, err = c.Classify("EXPLAIN SELECT 1")
	require.EqualError(t, err, "cannot classify")
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEvicts(t *testing.T) {
	inner := &countingClassifier{}
	c := NewCached(inner, 2)

	_, _ = c.Classify("SELECT 1")
	_, _ = c.Classify("SELECT 2")
	_, _ = c.Classify("SELECT 3")
	assert.Equal(t, 2, c.Len())
}
