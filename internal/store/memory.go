// Package store — in-memory Store implementation.
// Used when PostgreSQL is not configured (local dev, tests).
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/paisaflow/paisaflow/pkg/models"
)

// MemoryStore implements Store with in-memory maps. Entries are
// scoped to the process lifetime; concurrent writes for different
// requests never interleave within a single entry.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]*models.ExecutionLogEntry // key: id
	ordered  []string                             // ids, append order
	receipts map[string]*models.ReceiptRecord     // key: id
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:  make(map[string]*models.ExecutionLogEntry),
		receipts: make(map[string]*models.ReceiptRecord),
	}
}

// ── Execution Log ───────────────────────────────────────────

// AppendEntry records one invocation's log entry.
func (m *MemoryStore) AppendEntry(ctx context.Context, entry *models.ExecutionLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *entry
	m.entries[entry.ID] = &cp
	m.ordered = append(m.ordered, entry.ID)
	return nil
}

// ListEntries returns entries newest-first, optionally filtered by
// user.
func (m *MemoryStore) ListEntries(ctx context.Context, userID string, limit int) ([]models.ExecutionLogEntry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.ExecutionLogEntry
	for i := len(m.ordered) - 1; i >= 0 && len(out) < limit; i-- {
		entry := m.entries[m.ordered[i]]
		if userID != "" && entry.Context.UserID != userID {
			continue
		}
		out = append(out, *entry)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// GetEntry returns one entry by id.
func (m *MemoryStore) GetEntry(ctx context.Context, id string) (*models.ExecutionLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "execution log entry", Key: id}
	}
	cp := *entry
	return &cp, nil
}

// ── Receipt Records ─────────────────────────────────────────

// CreateReceipt registers a new receipt record.
func (m *MemoryStore) CreateReceipt(ctx context.Context, rec *models.ReceiptRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *rec
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	cp.UpdatedAt = cp.CreatedAt
	m.receipts[rec.ID] = &cp
	return nil
}

// UpdateReceiptStatus writes the record's (terminal) status.
func (m *MemoryStore) UpdateReceiptStatus(ctx context.Context, id string, status models.ReceiptStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.receipts[id]
	if !ok {
		return &ErrNotFound{Entity: "receipt", Key: id}
	}
	rec.Status = status
	rec.Error = errMsg
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

// GetReceipt returns one receipt record by id.
func (m *MemoryStore) GetReceipt(ctx context.Context, id string) (*models.ReceiptRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.receipts[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "receipt", Key: id}
	}
	cp := *rec
	return &cp, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
