// Package store provides the execution-log and receipt-record
// storage implementations. The interfaces live in pkg/contracts; this
// package ships an in-memory store (tests, zero-config dev) and a
// PostgreSQL store (production).
package store

import (
	"github.com/paisaflow/paisaflow/pkg/contracts"
)

// Store combines the log sink with receipt-status tracking.
type Store interface {
	contracts.ExecutionLogStore
	contracts.ReceiptStore

	// Close releases all resources held by the store.
	Close() error
}

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}

// DefaultListLimit caps ListEntries when the caller passes no limit.
const DefaultListLimit = 100
