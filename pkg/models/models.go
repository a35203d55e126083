// Package models defines the shared domain types for the PaisaFlow
// intent-routing core: the closed intent/modality enumerations, the
// normalized inbound request, agent decisions, and execution-log entries.
package models

import (
	"fmt"
	"time"
)

// ── Intent ───────────────────────────────────────────────────

// Intent is the classified purpose of a user request.
// The set is closed; routing switches over it exhaustively.
type Intent string

const (
	IntentAddExpense    Intent = "add_expense"
	IntentQueryExpenses Intent = "query_expenses"
	IntentSplitExpense  Intent = "split_expense"
	IntentGetInsights   Intent = "get_insights"
	IntentUnknown       Intent = "unknown"
)

// Intents lists every valid intent.
var Intents = []Intent{
	IntentAddExpense,
	IntentQueryExpenses,
	IntentSplitExpense,
	IntentGetInsights,
	IntentUnknown,
}

// ParseIntent maps a string to an Intent, defaulting to IntentUnknown.
func ParseIntent(s string) Intent {
	for _, in := range Intents {
		if string(in) == s {
			return in
		}
	}
	return IntentUnknown
}

// Valid reports whether the intent is one of the closed set.
func (i Intent) Valid() bool {
	for _, in := range Intents {
		if i == in {
			return true
		}
	}
	return false
}

// ── Modality ─────────────────────────────────────────────────

// Modality is the input channel a request arrived on.
type Modality string

const (
	ModalityAuto  Modality = "auto" // classify from the request contents
	ModalityText  Modality = "text"
	ModalityVoice Modality = "voice"
	ModalityImage Modality = "image"
	ModalitySMS   Modality = "sms"
)

// ParseModality maps a string to a Modality, defaulting to ModalityAuto.
func ParseModality(s string) Modality {
	switch Modality(s) {
	case ModalityText, ModalityVoice, ModalityImage, ModalitySMS:
		return Modality(s)
	default:
		return ModalityAuto
	}
}

// ── Execution Context ────────────────────────────────────────

// ExecutionContext identifies the acting user and call for one agent
// invocation. Created fresh per inbound call and immutable for its
// duration; the core passes it to the log and event collaborators but
// never persists it itself.
type ExecutionContext struct {
	UserID    string                 `json:"user_id"`
	SessionID string                 `json:"session_id"`
	RequestID string                 `json:"request_id"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// DefaultCurrency returns the caller's currency preference from
// metadata, or INR when none is declared.
func (ec *ExecutionContext) DefaultCurrency() string {
	if ec != nil {
		if c, ok := ec.Metadata["currency"].(string); ok && c != "" {
			return c
		}
	}
	return "INR"
}

// ── Route Request ────────────────────────────────────────────

// RouteRequest is the normalized inbound request the Router Agent
// classifies. Exactly one of Text/AudioURL/ImageURL/SMSText is
// typically set; InputType "auto" asks the router to classify.
type RouteRequest struct {
	InputType Modality `json:"input_type"`
	Text      string   `json:"text,omitempty"`
	AudioURL  string   `json:"audio_url,omitempty"`
	ImageURL  string   `json:"image_url,omitempty"`
	SMSText   string   `json:"sms_text,omitempty"`
	Language  string   `json:"language,omitempty"`
}

// ── Router Decision ──────────────────────────────────────────

// RouterDecision is the Router Agent's output: the classified intent,
// the downstream processor to dispatch to, and extracted parameters.
// Produced once per routed request and never mutated after creation.
type RouterDecision struct {
	Intent               Intent                 `json:"intent"`
	Processor            string                 `json:"processor"`
	Confidence           float64                `json:"confidence"`
	Params               map[string]interface{} `json:"params"`
	NextSteps            []string               `json:"next_steps,omitempty"`
	Reasoning            string                 `json:"reasoning,omitempty"`
	RequiresConfirmation bool                   `json:"requires_confirmation,omitempty"`
}

// String renders a compact summary for logs.
func (d *RouterDecision) String() string {
	return fmt.Sprintf("%s→%s (%.2f)", d.Intent, d.Processor, d.Confidence)
}

// ── Transcription ────────────────────────────────────────────

// TranscriptionResult is the uniform transcript contract produced by
// the speech adapter. Alternates hold up to two runner-up transcripts
// in the provider's own ranking, best first, primary excluded.
type TranscriptionResult struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	Language   string   `json:"language"`
	Alternates []string `json:"alternates,omitempty"`
}

// ── Extracted Expense ────────────────────────────────────────

// ExtractedExpense is the Voice Agent's output payload. Amount and
// Date are nil when unextractable — the caller must treat nil as
// "ask the user", never as zero or today.
type ExtractedExpense struct {
	Amount      *float64 `json:"amount"`
	Currency    string   `json:"currency"`
	Description *string  `json:"description"`
	Merchant    *string  `json:"merchant"`
	Category    *string  `json:"category"`
	Date        *string  `json:"date"` // ISO 8601 (YYYY-MM-DD)
	Confidence  float64  `json:"confidence"`
}

// VoiceResult bundles the transcript with the extracted expense and
// the clarifications the caller should ask the user for.
type VoiceResult struct {
	Transcription  *TranscriptionResult `json:"transcription"`
	Expense        *ExtractedExpense    `json:"expense"`
	Intent         Intent               `json:"intent"`
	Clarifications []string             `json:"clarifications,omitempty"`
}

// ── Token Usage ──────────────────────────────────────────────

// TokenUsage accounts for one reasoning call.
type TokenUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Total returns input + output tokens.
func (u TokenUsage) Total() int64 { return u.InputTokens + u.OutputTokens }

// ── Execution Log ────────────────────────────────────────────

// ExecutionStatus is the terminal status of one agent invocation.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailure ExecutionStatus = "failure"
)

// ExecutionLogEntry is the append-only audit record for one agent
// invocation. Exactly one entry exists per invocation, success or
// failure; Output is nil on failure.
type ExecutionLogEntry struct {
	ID        string                 `json:"id"`
	Agent     string                 `json:"agent"`
	Context   ExecutionContext       `json:"context"`
	Input     map[string]interface{} `json:"input"`
	Output    map[string]interface{} `json:"output,omitempty"`
	Status    ExecutionStatus        `json:"status"`
	Error     string                 `json:"error,omitempty"`
	Duration  time.Duration          `json:"duration"`
	Tokens    int64                  `json:"tokens,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// ── Events ───────────────────────────────────────────────────

// EventType names a domain event emitted after an agent completes.
type EventType string

const (
	EventRoutingCompleted EventType = "routing.completed"
	EventVoiceTranscribed EventType = "voice.transcribed"
	EventReceiptQueued    EventType = "receipt.queued"
	EventReceiptFailed    EventType = "receipt.failed"
)

// Event is the minimal decision summary handed to the event sink.
// Emission is best-effort; at most one event exists per invocation.
type Event struct {
	Type      EventType              `json:"type"`
	RequestID string                 `json:"request_id"`
	UserID    string                 `json:"user_id"`
	Agent     string                 `json:"agent"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent creates an Event stamped with the current UTC time.
func NewEvent(eventType EventType, ec *ExecutionContext, agent string, payload map[string]interface{}) Event {
	ev := Event{
		Type:      eventType,
		Agent:     agent,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
	if ec != nil {
		ev.RequestID = ec.RequestID
		ev.UserID = ec.UserID
	}
	return ev
}

// ── Receipt Records ──────────────────────────────────────────

// ReceiptStatus tracks a background receipt chain's terminal state.
type ReceiptStatus string

const (
	ReceiptPending    ReceiptStatus = "pending"
	ReceiptProcessing ReceiptStatus = "processing"
	ReceiptCompleted  ReceiptStatus = "completed"
	ReceiptFailed     ReceiptStatus = "failed"
)

// ReceiptRecord references an uploaded receipt being processed by the
// detached OCR → classify → record chain.
type ReceiptRecord struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	ImageURL  string        `json:"image_url"`
	Status    ReceiptStatus `json:"status"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
