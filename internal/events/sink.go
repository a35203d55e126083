// Package events implements the event-emission side channel. Agents
// emit at most one event per invocation; emission is best-effort and
// must never block the agent's return path, so the dispatcher hands
// events to sinks from a background worker over a bounded queue.
package events

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/paisaflow/paisaflow/pkg/contracts"
	"github.com/paisaflow/paisaflow/pkg/models"
)

// queueSize bounds the async dispatch queue. When full, events are
// dropped rather than blocking the caller — the execution log, not
// the event stream, is the audit record.
const queueSize = 256

// LogSink writes events to the structured log. The default sink.
type LogSink struct{}

// Emit implements contracts.EventSink.
func (LogSink) Emit(event models.Event) {
	log.Info().
		Str("event", string(event.Type)).
		Str("agent", event.Agent).
		Str("request_id", event.RequestID).
		Interface("payload", event.Payload).
		Msg("Event emitted")
}

// Dispatcher fans events out to the configured sinks asynchronously.
type Dispatcher struct {
	sinks []contracts.EventSink
	queue chan models.Event
	wg    sync.WaitGroup

	closeOnce sync.Once
}

// NewDispatcher starts the background worker over the given sinks.
func NewDispatcher(sinks ...contracts.EventSink) *Dispatcher {
	d := &Dispatcher{
		sinks: sinks,
		queue: make(chan models.Event, queueSize),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Emit enqueues the event without blocking. A full queue drops the
// event with a warning.
func (d *Dispatcher) Emit(event models.Event) {
	select {
	case d.queue <- event:
	default:
		log.Warn().
			Str("event", string(event.Type)).
			Str("request_id", event.RequestID).
			Msg("Event queue full, dropping event")
	}
}

// Close drains the queue and stops the worker. Call on graceful
// shutdown.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for event := range d.queue {
		for _, sink := range d.sinks {
			sink.Emit(event)
		}
	}
}
