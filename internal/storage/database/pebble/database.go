// Package pebble implements database.DB on cockroachdb/pebble.
package pebble

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/LeJamon/txdiffusion/internal/storage/database"
)

// DB adapts a pebble handle to database.DB.
type DB struct {
	mu     sync.RWMutex
	db     *pebble.DB
	closed bool
	owned  bool
}

var _ database.DB = (*DB)(nil)

// NewDB wraps an already open pebble database. Close does not close it.
func NewDB(db *pebble.DB) *DB {
	return &DB{db: db}
}

// Open opens (creating if needed) a pebble database at dir. A nil opts uses
// pebble's defaults.
func Open(dir string, opts *pebble.Options) (*DB, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", dir, err)
	}
	return &DB{db: db, owned: true}, nil
}

func (p *DB) handle(ctx context.Context) (*pebble.DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.closed || p.db == nil {
		return nil, database.ErrDBClosed
	}
	return p.db, nil
}

func (p *DB) Read(ctx context.Context, key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	db, err := p.handle(ctx)
	if err != nil {
		return nil, err
	}

	val, closer, err := db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, database.ErrKeyNotFound
		}
		return nil, err
	}
	defer closer.Close()

	// pebble owns val until closer is closed
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (p *DB) Has(ctx context.Context, key []byte) (bool, error) {
	_, err := p.Read(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, database.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (p *DB) Write(ctx context.Context, key, value []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	db, err := p.handle(ctx)
	if err != nil {
		return err
	}
	return db.Set(key, value, pebble.Sync)
}

func (p *DB) Delete(ctx context.Context, key []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	db, err := p.handle(ctx)
	if err != nil {
		return err
	}
	return db.Delete(key, pebble.Sync)
}

func (p *DB) Batch(ctx context.Context, ops []database.BatchOperation) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	db, err := p.handle(ctx)
	if err != nil {
		return err
	}

	batch := db.NewBatch()
	defer batch.Close()

	for _, op := range ops {
		switch op.Type {
		case database.BatchPut:
			if err := batch.Set(op.Key, op.Value, nil); err != nil {
				return err
			}
		case database.BatchDelete:
			if err := batch.Delete(op.Key, nil); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: %d", database.ErrUnknownBatchOp, op.Type)
		}
	}

	return batch.Commit(pebble.Sync)
}

func (p *DB) Iterator(ctx context.Context, start, end []byte) (database.Iterator, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	db, err := p.handle(ctx)
	if err != nil {
		return nil, err
	}

	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: start,
		UpperBound: end,
	})
	if err != nil {
		return nil, err
	}
	return &Iterator{iter: iter}, nil
}

// Close releases the database if this DB opened it.
func (p *DB) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	if p.owned && p.db != nil {
		return p.db.Close()
	}
	return nil
}

// Iterator walks a bounded key range. Bounds are enforced by pebble.
type Iterator struct {
	iter    *pebble.Iterator
	started bool
	current struct {
		key, value []byte
	}
}

func (it *Iterator) Next() bool {
	if !it.started {
		it.started = true
		it.iter.First()
	} else {
		it.iter.Next()
	}

	if !it.iter.Valid() {
		return false
	}

	key := it.iter.Key()
	val := it.iter.Value()

	it.current.key = append(it.current.key[:0], key...)
	it.current.value = append(it.current.value[:0], val...)
	return true
}

func (it *Iterator) Key() []byte {
	return it.current.key
}

func (it *Iterator) Value() []byte {
	return it.current.value
}

func (it *Iterator) Error() error {
	return it.iter.Error()
}

func (it *Iterator) Close() error {
	return it.iter.Close()
}
