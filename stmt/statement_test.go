package stmt

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stmtflow/stmtflow/backend"
	"github.com/stmtflow/stmtflow/classify"
	"github.com/stmtflow/stmtflow/format"
	"github.com/stmtflow/stmtflow/session"
)

func TestAppendAccumulates(t *testing.T) {
	st, _ := newTestStatement(t)
	st.Append("SELECT a").Append(" FROM t").Append(" WHERE a > 1")
	assert.Equal(t, "SELECT a FROM t WHERE a > 1", st.Text())
}

func TestArgsAppliedOnceAtExecution(t *testing.T) {
	st, be := newTestStatement(t)
	be.SetAffected(1)
	st.Append("DELETE FROM %s WHERE id = %d").Arg("users", 42)

	assert.Equal(t, "DELETE FROM %s WHERE id = %d", st.Text())

	n, err := st.Execute(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	assert.Equal(t, "DELETE FROM users WHERE id = 42", st.Text())
	assert.Equal(t, "DELETE FROM users WHERE id = 42", be.LastText())
}

func TestExecuteWithoutTextFails(t *testing.T) {
	st, _ := newTestStatement(t)
	_, err := st.Execute(context.Background(), true)
	assert.Error(t, err)
}

func TestBindingsReachBackendInOrder(t *testing.T) {
	st, be := newTestStatement(t)
	be.SetAffected(2)

	age := 30
	require.NoError(t, st.AddBind(Use("age", &age)))
	require.NoError(t, st.AddBind(Copy("name", "bob")))
	age = 31

	st.Append("UPDATE users SET name = :name WHERE age = :age")
	_, err := st.Execute(context.Background(), true)
	require.NoError(t, err)

	params := be.LastParams()
	require.Len(t, params, 2)
	assert.Equal(t, "age", params[0].Name)
	assert.Equal(t, 31, params[0].Value)
	assert.Equal(t, "name", params[1].Name)
	assert.Equal(t, "bob", params[1].Value)
}

func TestRemoveBindDropsAllWithName(t *testing.T) {
	st, _ := newTestStatement(t)
	require.NoError(t, st.AddBind(Copy("id", 1)))
	require.NoError(t, st.AddBind(Copy("id", 2)))
	require.NoError(t, st.AddBind(Copy("other", 3)))
	require.Equal(t, 3, st.BindCount())

	st.RemoveBind("id")
	assert.Equal(t, 1, st.BindCount())

	st.RemoveBind("missing")
	assert.Equal(t, 1, st.BindCount())
}

func TestResetClearsEverythingButConfiguration(t *testing.T) {
	st, _ := newTestStatement(t, backend.DataSet{
		Columns: []backend.Column{{Name: "n"}},
		Rows:    rows(25),
	})
	st.Append("SELECT n FROM numbers").SetLimit(NewLimit(10))
	require.NoError(t, st.SetStorage(StorageVector))
	require.NoError(t, st.AddBind(Copy("id", 1)))
	st.SetAsync(true)

	_, err := st.Execute(context.Background(), true)
	_, _, err2 := st.Wait(WaitForever)
	require.NoError(t, err)
	require.NoError(t, err2)
	require.True(t, st.Paused())

	require.NoError(t, st.Reset())
	assert.True(t, st.Initialized())
	assert.Equal(t, "", st.Text())
	assert.Equal(t, 0, st.BindCount())
	assert.Equal(t, 0, st.ExtractionCount())
	assert.Equal(t, uint64(0), st.SubTotalRowCount(CurrentDataSet))

	// Limits, storage kind and async mode survive a reset.
	assert.Equal(t, uint64(10), st.Limit().Value())
	assert.Equal(t, StorageVector, st.Storage())
	assert.True(t, st.IsAsync())
}

func TestExecuteDirectIgnoresAsyncFlag(t *testing.T) {
	st, be := newTestStatement(t)
	be.SetAffected(7)
	st.SetAsync(true)

	n, err := st.ExecuteDirect(context.Background(), "DELETE FROM t")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)
	assert.Equal(t, "DELETE FROM t", st.Text())
	assert.True(t, st.IsAsync())
}

func TestExecuteDirectReplacesText(t *testing.T) {
	st, be := newTestStatement(t, backend.DataSet{
		Columns: []backend.Column{{Name: "n"}},
		Rows:    rows(2),
	})
	st.Append("SELECT something else")

	n, err := st.ExecuteDirect(context.Background(), "SELECT n FROM numbers")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
	assert.Equal(t, "SELECT n FROM numbers", be.LastText())
}

func TestAffectedRowCountForNonReturningStatement(t *testing.T) {
	st, be := newTestStatement(t)
	be.SetAffected(4)
	st.Append("UPDATE t SET a = 1")

	n, err := st.Execute(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), n)
	assert.Equal(t, uint64(4), st.AffectedRowCount())
	assert.Equal(t, uint64(0), st.RowsExtracted(CurrentDataSet))
}

func TestAutoBeginTransaction(t *testing.T) {
	newStmt := func(t *testing.T, autocommit bool) (*Statement, *session.MemoryDriver, *session.Session) {
		t.Helper()
		drv := session.NewMemoryDriver(func() backend.Backend {
			be := backend.NewMemory()
			be.SetAffected(1)
			return be
		})
		sess := session.New(drv, session.WithAutocommit(autocommit))
		st, err := New(sess)
		require.NoError(t, err)
		return st, drv, sess
	}

	t.Run("modifying statement begins", func(t *testing.T) {
		st, drv, sess := newStmt(t, false)
		st.Append("INSERT INTO t VALUES (1)")
		_, err := st.Execute(context.Background(), true)
		require.NoError(t, err)
		assert.Equal(t, 1, drv.BeginCount())
		assert.True(t, sess.InTransaction())
	})

	t.Run("select only does not begin", func(t *testing.T) {
		st, drv, _ := newStmt(t, false)
		st.Append("SELECT 1")
		_, err := st.Execute(context.Background(), true)
		require.NoError(t, err)
		assert.Equal(t, 0, drv.BeginCount())
	})

	t.Run("autocommit session never begins", func(t *testing.T) {
		st, drv, _ := newStmt(t, true)
		st.Append("DELETE FROM t")
		_, err := st.Execute(context.Background(), true)
		require.NoError(t, err)
		assert.Equal(t, 0, drv.BeginCount())
	})

	t.Run("open transaction is not doubled", func(t *testing.T) {
		st, drv, sess := newStmt(t, false)
		require.NoError(t, sess.Begin(context.Background()))
		st.Append("DELETE FROM t")
		_, err := st.Execute(context.Background(), true)
		require.NoError(t, err)
		assert.Equal(t, 1, drv.BeginCount())
	})

	t.Run("classification failure degrades silently", func(t *testing.T) {
		st, drv, _ := newStmt(t, false)
		st.Append("CREATE TABLE t (a int)")
		_, err := st.Execute(context.Background(), true)
		require.NoError(t, err)
		assert.Equal(t, 0, drv.BeginCount())
		assert.NotEmpty(t, st.ParseError())
	})

	t.Run("no classifier means no auto-begin", func(t *testing.T) {
		st, drv, _ := newStmt(t, false)
		st.SetClassifier(nil)
		st.Append("DELETE FROM t")
		_, err := st.Execute(context.Background(), true)
		require.NoError(t, err)
		assert.Equal(t, 0, drv.BeginCount())
	})
}

func TestClassificationQueries(t *testing.T) {
	st, _ := newTestStatement(t)
	st.Append("SELECT a FROM t; INSERT INTO t VALUES (1);")

	assert.Equal(t, classify.Yes, st.Parse())
	count, ok := st.StatementsCount()
	require.True(t, ok)
	assert.Equal(t, 2, count)

	assert.Equal(t, classify.Yes, st.HasSelect())
	assert.Equal(t, classify.Yes, st.HasInsert())
	assert.Equal(t, classify.No, st.HasDelete())
	assert.Equal(t, classify.No, st.IsSelect())
	assert.Equal(t, classify.No, st.IsUpdate())
}

func TestClassificationQueriesWithoutClassifier(t *testing.T) {
	st, _ := newTestStatement(t)
	st.SetClassifier(nil)
	st.Append("SELECT 1")

	assert.Equal(t, classify.Unspecified, st.Parse())
	assert.Equal(t, classify.Unspecified, st.IsSelect())
	assert.Equal(t, classify.Unspecified, st.HasDelete())
	_, ok := st.StatementsCount()
	assert.False(t, ok)
}

func TestParseErrorRecordedAndClearedOnTextChange(t *testing.T) {
	st, _ := newTestStatement(t)
	st.Append("GRANT ALL ON t TO alice")

	assert.Equal(t, classify.No, st.Parse())
	assert.Contains(t, st.ParseError(), "GRANT")
	assert.Equal(t, classify.Unspecified, st.IsSelect())

	st.Append("; SELECT 1")
	assert.Empty(t, st.ParseError())
}

func TestWriteRows(t *testing.T) {
	st, _ := newTestStatement(t, backend.DataSet{
		Columns: []backend.Column{{Name: "id"}, {Name: "name"}},
		Rows: [][]any{
			{1, "alice"},
			{2, nil},
		},
	})
	st.Append("SELECT id, name FROM users")
	_, err := st.Execute(context.Background(), true)
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, st.WriteRows(&sb, CurrentDataSet))
	assert.Equal(t, "id\tname\n1\talice\n2\tNULL\n", sb.String())
}

func TestWriteRowsCustomFormatter(t *testing.T) {
	st, _ := newTestStatement(t, backend.DataSet{
		Columns: []backend.Column{{Name: "a"}, {Name: "b"}},
		Rows:    [][]any{{1, 2}},
	})
	st.SetFormatter(&format.Simple{Separator: ","})
	st.Append("SELECT a, b FROM t")
	_, err := st.Execute(context.Background(), true)
	require.NoError(t, err)

	var sb strings.Builder
	require.NoError(t, st.WriteRows(&sb, CurrentDataSet))
	assert.Equal(t, "a,b\n1,2\n", sb.String())
}

func TestColumnMetadataByName(t *testing.T) {
	st, _ := newTestStatement(t, backend.DataSet{
		Columns: []backend.Column{{Name: "id", Type: "int"}, {Name: "name", Type: "text"}},
		Rows:    [][]any{{1, "alice"}},
	})
	st.Append("SELECT id, name FROM users")
	_, err := st.Execute(context.Background(), true)
	require.NoError(t, err)

	col, ok := st.ColumnByName(CurrentDataSet, "name")
	require.True(t, ok)
	assert.Equal(t, "text", col.Type)

	_, ok = st.ColumnByName(CurrentDataSet, "missing")
	assert.False(t, ok)
}

func TestDataSetNavigation(t *testing.T) {
	st, _ := newTestStatement(t,
		backend.DataSet{Columns: []backend.Column{{Name: "a"}}, Rows: rows(2)},
		backend.DataSet{Columns: []backend.Column{{Name: "b"}}, Rows: rows(5)},
	)
	st.Append("SELECT a FROM t1; SELECT b FROM t2;")

	n, err := st.Execute(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), n)

	assert.Equal(t, 2, st.DataSetCount())
	assert.True(t, st.HasMoreDataSets())
	assert.Equal(t, uint64(2), st.RowsExtracted(CurrentDataSet))

	set, err := st.NextDataSet()
	require.NoError(t, err)
	assert.Equal(t, 1, set)
	assert.Equal(t, uint64(5), st.RowsExtracted(CurrentDataSet))
	assert.False(t, st.HasMoreDataSets())

	_, err = st.NextDataSet()
	assert.Error(t, err)

	set, err = st.PreviousDataSet()
	require.NoError(t, err)
	assert.Equal(t, 0, set)

	_, err = st.PreviousDataSet()
	assert.Error(t, err)
}

func TestCloneCopiesStateAndBuffers(t *testing.T) {
	drv := session.NewMemoryDriver(func() backend.Backend {
		return backend.NewMemory(backend.DataSet{
			Columns: []backend.Column{{Name: "n"}},
			Rows:    rows(25),
		})
	})
	sess := session.New(drv, session.WithAutocommit(true))
	st, err := New(sess)
	require.NoError(t, err)

	st.Append("SELECT n FROM numbers").SetLimit(NewLimit(10))
	_, err = st.Execute(context.Background(), true)
	require.NoError(t, err)
	require.True(t, st.Paused())

	clone, err := st.Clone()
	require.NoError(t, err)

	assert.NotEqual(t, st.ID(), clone.ID())
	assert.Equal(t, st.Text(), clone.Text())
	assert.Equal(t, st.State(), clone.State())
	assert.Equal(t, st.SubTotalRowCount(0), clone.SubTotalRowCount(0))
	assert.Equal(t, st.Storage(), clone.Storage())

	// Buffer contents are copied, not shared.
	orig := st.Extractions(0)[0]
	copied := clone.Extractions(0)[0]
	require.Equal(t, orig.Values(), copied.Values())
	copied.Buffer().Push(99)
	assert.NotEqual(t, orig.Buffer().Len(), copied.Buffer().Len())
}

func TestResetSession(t *testing.T) {
	st, _ := newTestStatement(t)
	st.Append("SELECT 1")

	be2 := backend.NewMemory(backend.DataSet{
		Columns: []backend.Column{{Name: "x"}},
		Rows:    rows(1),
	})
	drv2 := session.NewMemoryDriver(func() backend.Backend { return be2 })
	sess2 := session.New(drv2, session.WithAutocommit(true))

	require.NoError(t, st.ResetSession(sess2))
	assert.Same(t, sess2, st.Session())
	assert.Equal(t, "", st.Text())

	st.Append("SELECT x FROM t")
	n, err := st.Execute(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestStatementString(t *testing.T) {
	st, _ := newTestStatement(t)
	s := st.String()
	assert.Contains(t, s, st.ID())
	assert.Contains(t, s, "initialized")
}
