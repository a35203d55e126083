// Package pipeline runs the fire-and-forget processing chain behind
// receipt uploads: OCR extraction, then expense classification, then
// the persistence write. The triggering request never awaits the
// chain; the chain owns its own error boundary and guarantees a
// terminal status write on the referenced receipt record, so a stage
// failure can never surface to an unrelated caller.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/paisaflow/paisaflow/pkg/contracts"
	"github.com/paisaflow/paisaflow/pkg/models"
)

// chainTimeout bounds one detached chain execution.
const chainTimeout = 2 * time.Minute

// Stage processor names the chain dispatches to.
const (
	StageOCR      = "receipt-ocr"
	StageClassify = "expense-classifier"
	StageRecord   = "expense-recorder"
)

// Registry is a fixed name → Processor mapping assembled at startup.
type Registry struct {
	procs map[string]contracts.Processor
}

// NewRegistry builds the processor registry.
func NewRegistry(procs ...contracts.Processor) *Registry {
	r := &Registry{procs: make(map[string]contracts.Processor, len(procs))}
	for _, p := range procs {
		r.procs[p.Name()] = p
	}
	return r
}

// Get returns the named processor, or nil.
func (r *Registry) Get(name string) contracts.Processor {
	return r.procs[name]
}

// Chain spawns detached receipt-processing executions.
type Chain struct {
	processors *Registry
	receipts   contracts.ReceiptStore
	events     contracts.EventSink
	wg         sync.WaitGroup
}

// NewChain wires the chain's collaborators.
func NewChain(processors *Registry, receipts contracts.ReceiptStore, events contracts.EventSink) *Chain {
	return &Chain{
		processors: processors,
		receipts:   receipts,
		events:     events,
	}
}

// SubmitReceipt registers the receipt record, spawns the detached
// chain, and returns immediately. The caller polls the record's
// status; it never awaits the chain.
func (c *Chain) SubmitReceipt(ctx context.Context, ec *models.ExecutionContext, imageURL string) (*models.ReceiptRecord, error) {
	rec := &models.ReceiptRecord{
		ID:        uuid.New().String(),
		UserID:    ec.UserID,
		ImageURL:  imageURL,
		Status:    models.ReceiptPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := c.receipts.CreateReceipt(ctx, rec); err != nil {
		return nil, fmt.Errorf("create receipt record: %w", err)
	}

	c.events.Emit(models.NewEvent(models.EventReceiptQueued, ec, "pipeline", map[string]interface{}{
		"receipt_id": rec.ID,
	}))

	c.wg.Add(1)
	go c.run(ec, rec)

	return rec, nil
}

// Wait blocks until all in-flight chains finish. Call on graceful
// shutdown.
func (c *Chain) Wait() {
	c.wg.Wait()
}

// run executes the chain stages under a detached context with its own
// error boundary. The deferred block guarantees the terminal status
// write whatever happens, including a panicking processor.
func (c *Chain) run(ec *models.ExecutionContext, rec *models.ReceiptRecord) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), chainTimeout)
	defer cancel()

	var chainErr error
	defer func() {
		if r := recover(); r != nil {
			chainErr = fmt.Errorf("chain panic: %v", r)
		}
		c.finish(ctx, ec, rec, chainErr)
	}()

	if err := c.receipts.UpdateReceiptStatus(ctx, rec.ID, models.ReceiptProcessing, ""); err != nil {
		log.Warn().Err(err).Str("receipt", rec.ID).Msg("Failed to mark receipt processing")
	}

	params := map[string]interface{}{
		"receipt_id": rec.ID,
		"image_url":  rec.ImageURL,
	}

	for _, stage := range []string{StageOCR, StageClassify, StageRecord} {
		proc := c.processors.Get(stage)
		if proc == nil {
			chainErr = fmt.Errorf("processor %s not registered", stage)
			return
		}

		out, err := proc.Process(ctx, ec, params)
		if err != nil {
			chainErr = fmt.Errorf("stage %s: %w", stage, err)
			return
		}
		// Each stage's output feeds the next stage's input.
		for k, v := range out {
			params[k] = v
		}

		log.Debug().
			Str("receipt", rec.ID).
			Str("stage", stage).
			Msg("Receipt chain stage complete")
	}
}

// finish writes the terminal status and, on failure, emits the
// failure event. Logging here is the chain's own responsibility —
// nothing upstream is waiting to observe the error.
func (c *Chain) finish(ctx context.Context, ec *models.ExecutionContext, rec *models.ReceiptRecord, chainErr error) {
	status := models.ReceiptCompleted
	errMsg := ""
	if chainErr != nil {
		status = models.ReceiptFailed
		errMsg = chainErr.Error()

		log.Error().
			Err(chainErr).
			Str("receipt", rec.ID).
			Msg("Receipt chain failed")

		c.events.Emit(models.NewEvent(models.EventReceiptFailed, ec, "pipeline", map[string]interface{}{
			"receipt_id": rec.ID,
			"error":      errMsg,
		}))
	}

	// The status write must survive a dead chain context.
	if err := c.receipts.UpdateReceiptStatus(context.WithoutCancel(ctx), rec.ID, status, errMsg); err != nil {
		log.Error().Err(err).Str("receipt", rec.ID).Msg("Failed to write terminal receipt status")
	}
}
