// Package database defines the key-value store the results layer is written
// against.
package database

import (
	"context"
)

// DB is an ordered key-value store.
type DB interface {
	Read(ctx context.Context, key []byte) ([]byte, error)
	Write(ctx context.Context, key []byte, value []byte) error
	Delete(ctx context.Context, key []byte) error
	Has(ctx context.Context, key []byte) (bool, error)

	// Batch applies ops atomically.
	Batch(ctx context.Context, ops []BatchOperation) error

	// Iterator walks keys in [start, end). A nil bound is open.
	Iterator(ctx context.Context, start, end []byte) (Iterator, error)
}

// Iterator traverses entries in key order. Key and Value are only valid
// until the next call to Next.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Close() error
}

// BatchOperation is one step of an atomic batch.
type BatchOperation struct {
	Type  BatchOpType
	Key   []byte
	Value []byte
}

type BatchOpType int

const (
	BatchPut BatchOpType = iota
	BatchDelete
)

// Put returns a BatchPut operation.
func Put(key, value []byte) BatchOperation {
	return BatchOperation{Type: BatchPut, Key: key, Value: value}
}

// PrefixEnd returns the smallest key greater than every key starting with
// prefix, or nil when no such key exists.
func PrefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
