package pebble

import (
	"context"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/txdiffusion/internal/storage/database"
)

func openMem(t *testing.T) *DB {
	t.Helper()
	db, err := Open("test", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestReadWriteDelete(t *testing.T) {
	ctx := context.Background()
	db := openMem(t)

	_, err := db.Read(ctx, []byte("missing"))
	assert.ErrorIs(t, err, database.ErrKeyNotFound)

	require.NoError(t, db.Write(ctx, []byte("k"), []byte("v")))
	got, err := db.Read(ctx, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	ok, err := db.Has(ctx, []byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, db.Delete(ctx, []byte("k")))
	ok, err = db.Has(ctx, []byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBatchAndIterator(t *testing.T) {
	ctx := context.Background()
	db := openMem(t)

	require.NoError(t, db.Batch(ctx, []database.BatchOperation{
		database.Put([]byte("a/1"), []byte("one")),
		database.Put([]byte("a/2"), []byte("two")),
		database.Put([]byte("b/1"), []byte("other")),
		{Type: database.BatchDelete, Key: []byte("a/2")},
	}))

	err := db.Batch(ctx, []database.BatchOperation{{Type: database.BatchOpType(9), Key: []byte("x")}})
	assert.ErrorIs(t, err, database.ErrUnknownBatchOp)

	require.NoError(t, db.Write(ctx, []byte("a/3"), []byte("three")))

	prefix := []byte("a/")
	it, err := db.Iterator(ctx, prefix, database.PrefixEnd(prefix))
	require.NoError(t, err)

	var keys, values []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
		values = append(values, string(it.Value()))
	}
	require.NoError(t, it.Error())
	require.NoError(t, it.Close())

	assert.Equal(t, []string{"a/1", "a/3"}, keys)
	assert.Equal(t, []string{"one", "three"}, values)
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	db := openMem(t)
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	_, err := db.Read(ctx, []byte("k"))
	assert.ErrorIs(t, err, database.ErrDBClosed)
	assert.ErrorIs(t, db.Write(ctx, []byte("k"), nil), database.ErrDBClosed)
	_, err = db.Iterator(ctx, nil, nil)
	assert.ErrorIs(t, err, database.ErrDBClosed)
}

func TestCancelledContext(t *testing.T) {
	db := openMem(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, db.Write(ctx, []byte("k"), []byte("v")), context.Canceled)
}

func TestManagerReusesHandles(t *testing.T) {
	m := NewManagerFS("data", vfs.NewMem())

	a, err := m.OpenDB("results")
	require.NoError(t, err)
	b, err := m.OpenDB("results")
	require.NoError(t, err)
	assert.Same(t, a, b)

	require.NoError(t, m.CloseDB("results"))
	assert.Error(t, m.CloseDB("results"))

	_, err = m.OpenDB("results")
	require.NoError(t, err)
	require.NoError(t, m.Close())
}

func TestPrefixEnd(t *testing.T) {
	assert.Equal(t, []byte("b"), database.PrefixEnd([]byte("a")))
	assert.Equal(t, []byte{0x01}, database.PrefixEnd([]byte{0x00, 0xff}))
	assert.Nil(t, database.PrefixEnd([]byte{0xff, 0xff}))
}
