package recdb_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spy16/recdb"
	"github.com/spy16/recdb/codec"
	"github.com/spy16/recdb/pager"
)

func newStore(t *testing.T, opts *recdb.Options) *recdb.StorageManager {
	t.Helper()

	sm, err := recdb.New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sm.Close() })
	return sm
}

func TestStorageManager_InsertAndRead(t *testing.T) {
	t.Parallel()

	for name, opts := range map[string]*recdb.Options{
		"InMem":   nil,
		"OffHeap": {OffHeap: true},
	} {
		opts := opts
		t.Run(name, func(t *testing.T) {
			sm := newStore(t, opts)

			fields := codec.Record{"foo": "1234", "bar": "the value"}
			id, err := sm.InsertData("the_table", fields)
			require.NoError(t, err)
			assert.Equal(t, pager.PageID(0), id)

			pg, found := sm.Read(id)
			require.True(t, found)

			var got codec.Record
			require.NoError(t, codec.Decode(pg.Data, &got))
			assert.Equal(t, fields, got)
			assert.Equal(t, uint64(len(pg.Data)), pg.Header.Size)

			rec, found, err := sm.ReadRecord(id)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, fields, rec)
		})
	}
}

func TestStorageManager_UpdateData(t *testing.T) {
	t.Parallel()

	sm := newStore(t, nil)

	first := codec.Record{"foo": "1234", "bar": "the value"}
	second := codec.Record{"foo": "5678"}

	id0, err := sm.InsertData("the_table", first)
	require.NoError(t, err)
	id1, err := sm.InsertData("the_table", second)
	require.NoError(t, err)
	require.Equal(t, pager.PageID(0), id0)
	require.Equal(t, pager.PageID(1), id1)

	updated := codec.Record{"foo": "0", "bar": "changed", "baz": "new field"}
	got, err := sm.UpdateData(id0, updated)
	require.NoError(t, err)
	assert.Equal(t, id0, got)

	rec, found, err := sm.ReadRecord(id0)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, updated, rec)

	rec, found, err = sm.ReadRecord(id1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, second, rec)

	_, found = sm.Read(2)
	assert.False(t, found)
	rec, found, err = sm.ReadRecord(2)
	assert.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, rec)

	_, err = sm.UpdateData(2, updated)
	assert.ErrorIs(t, err, recdb.ErrPageNotFound)

	// update keeps the page in its table
	assert.Equal(t, []pager.PageID{0, 1}, sm.Pages("the_table"))
}

func TestStorageManager_Directory(t *testing.T) {
	t.Parallel()

	sm := newStore(t, nil)

	a1, err := sm.InsertData("a", codec.Record{"n": "1"})
	require.NoError(t, err)
	b1, err := sm.InsertData("b", codec.Record{"n": "1"})
	require.NoError(t, err)
	a2, err := sm.InsertData("a", codec.Record{"n": "2"})
	require.NoError(t, err)

	assert.Equal(t, []pager.PageID{a1, a2}, sm.Pages("a"))
	assert.Equal(t, []pager.PageID{b1}, sm.Pages("b"))
	assert.NotContains(t, sm.Pages("b"), a1)
	assert.NotContains(t, sm.Pages("b"), a2)
	assert.Empty(t, sm.Pages("missing"))
	assert.Equal(t, []string{"a", "b"}, sm.Tables())

	owner, found := sm.Owner(a2)
	assert.True(t, found)
	assert.Equal(t, "a", owner)
	_, found = sm.Owner(99)
	assert.False(t, found)

	// returned slices are copies
	pages := sm.Pages("a")
	pages[0] = 42
	assert.Equal(t, []pager.PageID{a1, a2}, sm.Pages("a"))

	_, err = sm.InsertData("", codec.Record{"n": "1"})
	assert.ErrorIs(t, err, recdb.ErrEmptyTable)

	assert.NoError(t, sm.Check())
}

func TestStorageManager_UpdateTableData(t *testing.T) {
	t.Parallel()

	sm := newStore(t, nil)

	users, err := sm.InsertData("users", codec.Record{"name": "bob"})
	require.NoError(t, err)
	orders, err := sm.InsertData("orders", codec.Record{"item": "book"})
	require.NoError(t, err)

	_, err = sm.UpdateTableData("users", users, codec.Record{"name": "alice"})
	assert.NoError(t, err)

	_, err = sm.UpdateTableData("users", orders, codec.Record{"name": "alice"})
	assert.ErrorIs(t, err, recdb.ErrWrongTable)

	rec, _, err := sm.ReadRecord(orders)
	require.NoError(t, err)
	assert.Equal(t, codec.Record{"item": "book"}, rec, "rejected update must not write")

	_, err = sm.UpdateTableData("users", 10, codec.Record{"name": "x"})
	assert.ErrorIs(t, err, recdb.ErrPageNotFound)

	_, err = sm.UpdateTableData("", users, codec.Record{"name": "x"})
	assert.ErrorIs(t, err, recdb.ErrEmptyTable)
}

func TestStorageManager_Schema(t *testing.T) {
	t.Parallel()

	sm := newStore(t, nil)

	schema, err := recdb.ParseSchema("id:int,name:string,active:boolean")
	require.NoError(t, err)
	require.NoError(t, sm.DeclareTable("users", schema))

	got, found := sm.Schema("users")
	require.True(t, found)
	assert.Equal(t, schema, got)
	assert.Equal(t, []string{"users"}, sm.Tables())

	err = sm.DeclareTable("users", schema)
	assert.ErrorIs(t, err, recdb.ErrTableExists)

	id, err := sm.InsertData("users", codec.Record{"id": "1", "name": "bob", "active": "true"})
	require.NoError(t, err)

	t.Run("InsertMismatch", func(t *testing.T) {
		_, err := sm.InsertData("users", codec.Record{"id": "x", "name": "bob", "active": "true"})
		require.ErrorIs(t, err, recdb.ErrSchemaMismatch)

		var se *recdb.SchemaError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "users", se.Table)
		assert.Equal(t, "id", se.Field)
		assert.Equal(t, []pager.PageID{id}, sm.Pages("users"), "rejected insert must not allocate")
	})

	t.Run("UpdateMismatch", func(t *testing.T) {
		_, err := sm.UpdateData(id, codec.Record{"id": "1", "name": "bob"})
		assert.ErrorIs(t, err, recdb.ErrSchemaMismatch)

		rec, _, err := sm.ReadRecord(id)
		require.NoError(t, err)
		assert.Equal(t, "true", rec["active"])
	})

	t.Run("UndeclaredTable", func(t *testing.T) {
		_, err := sm.InsertData("free_form", codec.Record{"anything": "goes"})
		assert.NoError(t, err)
	})

	t.Run("DeclareOverExistingRecords", func(t *testing.T) {
		_, err := sm.InsertData("legacy", codec.Record{"a": "1"})
		require.NoError(t, err)
		_, err = sm.InsertData("legacy", codec.Record{"a": "2", "b": "x"})
		require.NoError(t, err)

		err = sm.DeclareTable("legacy", recdb.Schema{{Name: "a", Type: recdb.TypeInt32}})
		assert.ErrorIs(t, err, recdb.ErrSchemaMismatch)
		_, found := sm.Schema("legacy")
		assert.False(t, found)

		err = sm.DeclareTable("legacy", recdb.Schema{
			{Name: "a", Type: recdb.TypeInt32},
			{Name: "b", Type: recdb.TypeString},
		})
		assert.ErrorIs(t, err, recdb.ErrSchemaMismatch, "first record lacks 'b'")
	})

	t.Run("InvalidDeclaration", func(t *testing.T) {
		assert.ErrorIs(t, sm.DeclareTable("t", nil), recdb.ErrInvalidSchema)
		assert.ErrorIs(t, sm.DeclareTable("", schema), recdb.ErrEmptyTable)
	})
}

func TestStorageManager_Scan(t *testing.T) {
	t.Parallel()

	sm := newStore(t, nil)
	for i := 0; i < 5; i++ {
		_, err := sm.InsertData("even", codec.Record{"n": fmt.Sprint(2 * i)})
		require.NoError(t, err)
		_, err = sm.InsertData("odd", codec.Record{"n": fmt.Sprint(2*i + 1)})
		require.NoError(t, err)
	}

	var got []string
	err := sm.Scan("odd", func(id pager.PageID, rec codec.Record) bool {
		got = append(got, rec["n"])
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3", "5", "7", "9"}, got)

	count := 0
	err = sm.Scan("even", func(id pager.PageID, rec codec.Record) bool {
		count++
		// callbacks may write to the store
		_, err := sm.UpdateData(id, codec.Record{"n": "seen"})
		assert.NoError(t, err)
		return count < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.NoError(t, sm.Scan("missing", func(pager.PageID, codec.Record) bool {
		t.Error("callback must not run for an empty table")
		return true
	}))
}

func TestStorageManager_Stats(t *testing.T) {
	sm := newStore(t, nil)

	_, err := sm.InsertData("a", codec.Record{"x": "1"})
	require.NoError(t, err)
	_, err = sm.InsertData("b", codec.Record{"x": "1"})
	require.NoError(t, err)
	require.NoError(t, sm.DeclareTable("c", recdb.Schema{{Name: "x"}}))

	st := sm.Stats()
	assert.Equal(t, sm.ID().String(), st.ID)
	assert.Equal(t, 2, st.Tables)
	assert.Equal(t, 1, st.Declared)
	assert.Equal(t, 2, st.Records)
	assert.Equal(t, 2, st.Pager.Pages)
	assert.Contains(t, sm.String(), sm.ID().String())
}

func TestStorageManager_Close(t *testing.T) {
	sm, err := recdb.New(nil)
	require.NoError(t, err)

	id, err := sm.InsertData("t", codec.Record{"a": "b"})
	require.NoError(t, err)
	require.NoError(t, sm.Close())

	_, found := sm.Read(id)
	assert.False(t, found)
	_, err = sm.InsertData("t", codec.Record{"a": "b"})
	assert.Error(t, err)
	_, err = sm.UpdateData(id, codec.Record{"a": "c"})
	assert.Error(t, err)
}

func TestStorageManager_concurrent(t *testing.T) {
	t.Parallel()

	sm := newStore(t, &recdb.Options{OffHeap: true})

	const workers, perWorker = 8, 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			table := fmt.Sprintf("t%d", w%3)
			for i := 0; i < perWorker; i++ {
				id, err := sm.InsertData(table, codec.Record{"w": fmt.Sprint(w), "i": fmt.Sprint(i)})
				if err != nil {
					t.Errorf("InsertData() unexpected error: %v", err)
					return
				}
				if _, err := sm.UpdateData(id, codec.Record{"w": fmt.Sprint(w), "i": "done"}); err != nil {
					t.Errorf("UpdateData() unexpected error: %v", err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for _, table := range sm.Tables() {
		total += len(sm.Pages(table))
		err := sm.Scan(table, func(id pager.PageID, rec codec.Record) bool {
			assert.Equal(t, "done", rec["i"])
			return true
		})
		require.NoError(t, err)
	}
	assert.Equal(t, workers*perWorker, total)
	assert.NoError(t, sm.Check())
}
