// Package contracts defines the boundaries between the routing core
// and its external collaborators.
//
// The core never dispatches to downstream processors, persists domain
// records, or renders notifications itself. It depends on these
// interfaces; the surrounding application supplies implementations.
// The repo ships reference implementations for the log store
// (internal/store) and event sink (internal/events) so the server is
// runnable out of the box.
package contracts

import (
	"context"

	"github.com/paisaflow/paisaflow/pkg/models"
)

// ── Processor ───────────────────────────────────────────────

// Processor is a specialized downstream handler identified by name.
// The router only selects a processor; actual dispatch belongs to the
// caller. The background receipt pipeline invokes processors directly.
type Processor interface {
	// Name returns the processor identifier used in routing decisions.
	Name() string

	// Process handles a normalized request and returns a typed result.
	Process(ctx context.Context, ec *models.ExecutionContext, params map[string]interface{}) (map[string]interface{}, error)
}

// ── Log Sink ────────────────────────────────────────────────

// ExecutionLogStore accepts one ExecutionLogEntry per agent
// invocation. Implementations must not fail the invocation being
// logged: a write error is reported to the caller but never masks the
// original agent error.
type ExecutionLogStore interface {
	AppendEntry(ctx context.Context, entry *models.ExecutionLogEntry) error
	ListEntries(ctx context.Context, userID string, limit int) ([]models.ExecutionLogEntry, error)
	GetEntry(ctx context.Context, id string) (*models.ExecutionLogEntry, error)
}

// ── Event Sink ──────────────────────────────────────────────

// EventSink receives at most one domain event per successful or
// fallback-completed invocation. Emission is fire-and-forget: Emit
// must not block the agent's return path and its failure is only
// logged.
type EventSink interface {
	Emit(event models.Event)
}

// ── Transcriber ─────────────────────────────────────────────

// Transcriber wraps an external speech-to-text provider.
type Transcriber interface {
	// Transcribe fetches the referenced audio and returns the primary
	// transcript with up to two provider-ranked alternates.
	Transcribe(ctx context.Context, audioURL, languageHint string) (*models.TranscriptionResult, error)
}

// ── Receipt Records ─────────────────────────────────────────

// ReceiptStore tracks the terminal status of background receipt
// chains. The chain guarantees a terminal status write even when a
// stage fails.
type ReceiptStore interface {
	CreateReceipt(ctx context.Context, rec *models.ReceiptRecord) error
	UpdateReceiptStatus(ctx context.Context, id string, status models.ReceiptStatus, errMsg string) error
	GetReceipt(ctx context.Context, id string) (*models.ReceiptRecord, error)
}
