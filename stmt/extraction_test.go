package stmt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stmtflow/stmtflow/backend"
)

func TestDequeBuffer(t *testing.T) {
	d := &Deque{}
	d.Push(1)
	d.Push(2)
	d.Push(3)
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, []any{1, 2, 3}, d.Values())

	v, ok := d.PopFront()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = d.PopBack()
	require.True(t, ok)
	assert.Equal(t, 3, v)
	assert.Equal(t, 1, d.Len())

	v, ok = d.PopFront()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = d.PopFront()
	assert.False(t, ok)
	_, ok = d.PopBack()
	assert.False(t, ok)

	d.Push(4)
	assert.Equal(t, []any{4}, d.Values())
	d.Clear()
	assert.Equal(t, 0, d.Len())
}

func TestVectorBuffer(t *testing.T) {
	v := &Vector{}
	v.Push("a")
	v.Push("b")
	assert.Equal(t, 2, v.Len())
	assert.Equal(t, []any{"a", "b"}, v.Values())

	vals := v.Values()
	vals[0] = "mutated"
	assert.Equal(t, []any{"a", "b"}, v.Values())

	v.Clear()
	assert.Equal(t, 0, v.Len())
}

func TestListBuffer(t *testing.T) {
	l := NewList()
	l.Push(1)
	l.Push(2)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []any{1, 2}, l.Values())
	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Values())
}

func TestParseStorage(t *testing.T) {
	for name, want := range map[string]Storage{
		"deque":  StorageDeque,
		"vector": StorageVector,
		"list":   StorageList,
	} {
		got, err := ParseStorage(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseStorage("tree")
	assert.Error(t, err)
}

func TestStorageSelectionShapesOwnedBuffers(t *testing.T) {
	st, _ := newTestStatement(t)
	require.NoError(t, st.SetStorage(StorageVector))

	e := Extract("n")
	require.NoError(t, st.AddExtract(e))
	assert.IsType(t, &Vector{}, e.Buffer())
}

func TestStorageNotModifiableWithExtractions(t *testing.T) {
	st, _ := newTestStatement(t)
	require.NoError(t, st.AddExtract(Extract("n")))

	assert.False(t, st.CanModifyStorage())
	assert.ErrorIs(t, st.SetStorage(StorageList), ErrModeConflict)

	require.NoError(t, st.Reset())
	assert.True(t, st.CanModifyStorage())
	assert.NoError(t, st.SetStorage(StorageList))
}

func TestStorageNotModifiableWhilePaused(t *testing.T) {
	st, _ := newTestStatement(t, backend.DataSet{
		Columns: []backend.Column{{Name: "n"}},
		Rows:    rows(25),
	})
	st.Append("SELECT n FROM numbers").SetLimit(NewLimit(10))
	_, err := st.Execute(context.Background(), true)
	require.NoError(t, err)
	require.True(t, st.Paused())

	assert.False(t, st.CanModifyStorage())
	assert.ErrorIs(t, st.SetStorage(StorageVector), ErrModeConflict)
}

func TestSetStorageName(t *testing.T) {
	st, _ := newTestStatement(t)
	require.NoError(t, st.SetStorageName("list"))
	assert.Equal(t, "list", st.StorageName())
	assert.Error(t, st.SetStorageName("heap"))
}

func TestApplyStorageActions(t *testing.T) {
	st, _ := newTestStatement(t)

	require.NoError(t, st.Apply(ActionStorageVector))
	assert.Equal(t, StorageVector, st.Storage())

	st.SetAsync(true)
	require.NoError(t, st.Apply(ActionReset))
	assert.Equal(t, StorageDeque, st.Storage())
	assert.False(t, st.IsAsync())
}

func TestExtractIntoCallerOwnedBuffer(t *testing.T) {
	st, _ := newTestStatement(t, backend.DataSet{
		Columns: []backend.Column{{Name: "n"}},
		Rows:    rows(3),
	})
	buf := &Vector{}
	require.NoError(t, st.AddExtract(ExtractInto("n", buf)))
	st.Append("SELECT n FROM numbers")

	_, err := st.Execute(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, []any{0, 1, 2}, buf.Values())
}

func TestDefaultExtractionsFromResultColumns(t *testing.T) {
	st, _ := newTestStatement(t, backend.DataSet{
		Columns: []backend.Column{{Name: "a"}, {Name: "b"}},
		Rows:    [][]any{{1, "x"}, {2, "y"}},
	})
	st.Append("SELECT a, b FROM t")

	require.Equal(t, 0, st.ExtractionCount())
	_, err := st.Execute(context.Background(), true)
	require.NoError(t, err)

	require.Equal(t, 2, st.ExtractionCount())
	exts := st.Extractions(CurrentDataSet)
	assert.Equal(t, "a", exts[0].Column())
	assert.Equal(t, []any{1, 2}, exts[0].Values())
	assert.Equal(t, "b", exts[1].Column())
	assert.Equal(t, []any{"x", "y"}, exts[1].Values())
	assert.Equal(t, 2, st.ColumnsExtracted(CurrentDataSet))
}

func TestResetBuffersFalseAccumulates(t *testing.T) {
	st, _ := newTestStatement(t, backend.DataSet{
		Columns: []backend.Column{{Name: "n"}},
		Rows:    rows(25),
	})
	st.Append("SELECT n FROM numbers").SetLimit(NewLimit(10))

	ctx := context.Background()
	for !st.Done() {
		_, err := st.Execute(ctx, false)
		require.NoError(t, err)
	}
	assert.Equal(t, 25, st.Extractions(CurrentDataSet)[0].Buffer().Len())
}

func TestResetBuffersTrueKeepsOnlyLastPage(t *testing.T) {
	st, _ := newTestStatement(t, backend.DataSet{
		Columns: []backend.Column{{Name: "n"}},
		Rows:    rows(25),
	})
	st.Append("SELECT n FROM numbers").SetLimit(NewLimit(10))

	ctx := context.Background()
	for !st.Done() {
		_, err := st.Execute(ctx, true)
		require.NoError(t, err)
	}
	assert.Equal(t, 5, st.Extractions(CurrentDataSet)[0].Buffer().Len())
}

func TestAddExtractToInvalidDataSet(t *testing.T) {
	st, _ := newTestStatement(t)
	assert.Error(t, st.AddExtractTo(-2, Extract("n")))
}
