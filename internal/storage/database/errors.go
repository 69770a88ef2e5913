package database

import "errors"

var (
	// ErrDBClosed is returned when operating on a closed database
	ErrDBClosed = errors.New("database is closed")

	// ErrKeyNotFound is returned when a key doesn't exist in the database
	ErrKeyNotFound = errors.New("key not found")

	// ErrUnknownBatchOp is returned for a batch operation of unknown type
	ErrUnknownBatchOp = errors.New("unknown batch operation")
)
