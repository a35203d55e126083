// Package agent implements the shared execution lifecycle every
// concrete agent runs through for a single call:
//
//	build prompt → reason → extract structured output (fallback on
//	parse failure) → post-process → log → emit event → return.
//
// Concrete agents differ only in their Spec: the tool set, system
// instruction, prompt construction, output shape, fallback values,
// and post-processing. The lifecycle itself is fixed.
package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/paisaflow/paisaflow/internal/extract"
	"github.com/paisaflow/paisaflow/internal/reasoning"
	"github.com/paisaflow/paisaflow/internal/tool"
	"github.com/paisaflow/paisaflow/pkg/contracts"
	"github.com/paisaflow/paisaflow/pkg/models"
)

var tracer = otel.Tracer("paisaflow-core")

// Spec is what a concrete agent supplies to the fixed lifecycle.
// Implementations must be immutable and safe to share across
// concurrently executing requests.
type Spec interface {
	// Name identifies the agent in logs and events.
	Name() string

	// Tools returns the agent's fixed tool registry. May be nil.
	Tools() *tool.Registry

	// SystemInstruction describes the exact output shape the agent
	// expects from the reasoning call.
	SystemInstruction() string

	// BuildPrompt renders the typed input into the user prompt.
	// It may invoke the agent's tools directly to pre-compute hints.
	BuildPrompt(ctx context.Context, ec *models.ExecutionContext, input interface{}) (string, error)

	// ParseOutput decodes the extracted JSON object into the agent's
	// typed output. A decode failure triggers Fallback.
	ParseOutput(obj json.RawMessage) (interface{}, error)

	// Fallback produces the deterministic low-confidence output used
	// when structured extraction fails. It must never fail.
	Fallback(ec *models.ExecutionContext, input interface{}, rawText string) interface{}

	// PostProcess clamps and normalizes the output and derives
	// secondary fields. It receives both primary-path and fallback
	// outputs.
	PostProcess(ec *models.ExecutionContext, input interface{}, output interface{}) interface{}

	// Event returns the (type, payload) of the domain event summarizing
	// the decision. An empty type suppresses emission.
	Event(output interface{}) (models.EventType, map[string]interface{})
}

// Runner executes Specs through the fixed lifecycle. One logical
// execution handles each inbound request; the Runner itself holds no
// per-request state.
type Runner struct {
	reason reasoning.Client
	logs   contracts.ExecutionLogStore
	events contracts.EventSink
	now    func() time.Time
}

// NewRunner wires the lifecycle's collaborators.
func NewRunner(client reasoning.Client, logs contracts.ExecutionLogStore, events contracts.EventSink) *Runner {
	return &Runner{
		reason: client,
		logs:   logs,
		events: events,
		now:    time.Now,
	}
}

// Run executes one agent invocation.
//
// Invariant: every invocation produces exactly one ExecutionLogEntry —
// recorded before any error propagates — and at most one emitted
// event. ParseError never escapes; it is absorbed by the agent's
// deterministic fallback. Cancellation short-circuits before success
// logging and is recorded as a failure.
func (r *Runner) Run(ctx context.Context, ec *models.ExecutionContext, spec Spec, input interface{}) (interface{}, error) {
	start := r.now()

	ctx, span := tracer.Start(ctx, "agent.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("agent.name", spec.Name()),
		attribute.String("request.id", ec.RequestID),
	)

	prompt, err := spec.BuildPrompt(ctx, ec, input)
	if err != nil {
		return nil, r.fail(ctx, span, ec, spec, input, start, 0, err)
	}

	result, err := r.reason.Generate(ctx, spec.SystemInstruction(), prompt)
	if err != nil {
		if ctx.Err() != nil && !contracts.IsCancellation(err) {
			err = &contracts.CancellationError{Err: ctx.Err()}
		}
		return nil, r.fail(ctx, span, ec, spec, input, start, 0, err)
	}

	// Cancellation between the reasoning call and logging still counts
	// as a failed invocation, not a success.
	if ctx.Err() != nil {
		return nil, r.fail(ctx, span, ec, spec, input, start, result.Usage.Total(),
			&contracts.CancellationError{Err: ctx.Err()})
	}

	output := r.extractOutput(spec, ec, input, result.Text)
	output = spec.PostProcess(ec, input, output)

	entry := r.newEntry(ec, spec, input, start)
	entry.Status = models.ExecutionSuccess
	entry.Output = toMap(output)
	entry.Tokens = result.Usage.Total()
	r.appendEntry(ctx, entry)

	if eventType, payload := spec.Event(output); eventType != "" {
		r.events.Emit(models.NewEvent(eventType, ec, spec.Name(), payload))
	}

	log.Info().
		Str("agent", spec.Name()).
		Str("request_id", ec.RequestID).
		Dur("duration", entry.Duration).
		Int64("tokens", entry.Tokens).
		Msg("Agent run complete")

	return output, nil
}

// extractOutput runs the structured-output extractor and falls back
// deterministically. Fallback is the last line of defense: it must
// always produce a well-typed, if low-confidence, result.
func (r *Runner) extractOutput(spec Spec, ec *models.ExecutionContext, input interface{}, rawText string) interface{} {
	obj, err := extract.FirstObject(rawText)
	if err == nil {
		parsed, perr := spec.ParseOutput(obj)
		if perr == nil {
			return parsed
		}
		err = perr
	}

	log.Debug().
		Str("agent", spec.Name()).
		Err(err).
		Msg("Structured extraction failed, using fallback")

	return spec.Fallback(ec, input, rawText)
}

// fail records the single failed ExecutionLogEntry and returns the
// original error. No event is emitted on failure.
func (r *Runner) fail(ctx context.Context, span trace.Span, ec *models.ExecutionContext, spec Spec, input interface{}, start time.Time, tokens int64, err error) error {
	entry := r.newEntry(ec, spec, input, start)
	entry.Status = models.ExecutionFailure
	entry.Error = err.Error()
	entry.Tokens = tokens

	// Logging uses a detached context so a cancelled request still
	// gets its failure entry written.
	r.appendEntry(context.WithoutCancel(ctx), entry)

	span.SetStatus(codes.Error, err.Error())

	log.Warn().
		Str("agent", spec.Name()).
		Str("request_id", ec.RequestID).
		Err(err).
		Msg("Agent run failed")

	return err
}

func (r *Runner) newEntry(ec *models.ExecutionContext, spec Spec, input interface{}, start time.Time) *models.ExecutionLogEntry {
	return &models.ExecutionLogEntry{
		ID:        uuid.New().String(),
		Agent:     spec.Name(),
		Context:   *ec,
		Input:     toMap(input),
		Duration:  r.now().Sub(start),
		CreatedAt: r.now().UTC(),
	}
}

// appendEntry writes the log entry. A log-sink failure is reported
// but never masks the invocation's own outcome.
func (r *Runner) appendEntry(ctx context.Context, entry *models.ExecutionLogEntry) {
	if err := r.logs.AppendEntry(ctx, entry); err != nil {
		log.Error().
			Err(err).
			Str("agent", entry.Agent).
			Str("entry_id", entry.ID).
			Msg("Failed to append execution log entry")
	}
}

// toMap snapshots a typed value into the generic mapping stored in
// log entries.
func toMap(v interface{}) map[string]interface{} {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{"unserializable": err.Error()}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]interface{}{"value": string(raw)}
	}
	return out
}
