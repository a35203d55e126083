package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/paisaflow/paisaflow/internal/store"
	"github.com/paisaflow/paisaflow/pkg/contracts"
	"github.com/paisaflow/paisaflow/pkg/models"
)

type stubProcessor struct {
	name string
	fn   func(params map[string]interface{}) (map[string]interface{}, error)
}

func (p *stubProcessor) Name() string { return p.name }

func (p *stubProcessor) Process(ctx context.Context, ec *models.ExecutionContext, params map[string]interface{}) (map[string]interface{}, error) {
	return p.fn(params)
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (s *recordingSink) Emit(event models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) types() []models.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

func passThrough(name string, extra map[string]interface{}) contracts.Processor {
	return &stubProcessor{name: name, fn: func(params map[string]interface{}) (map[string]interface{}, error) {
		return extra, nil
	}}
}

func testContext() *models.ExecutionContext {
	return &models.ExecutionContext{UserID: "u1", RequestID: "r1"}
}

func TestChainCompletes(t *testing.T) {
	st := store.NewMemoryStore()
	sink := &recordingSink{}

	var classifierSaw map[string]interface{}
	registry := NewRegistry(
		passThrough(StageOCR, map[string]interface{}{"receipt_text": "CCD\nTOTAL 250"}),
		&stubProcessor{name: StageClassify, fn: func(params map[string]interface{}) (map[string]interface{}, error) {
			classifierSaw = params
			return map[string]interface{}{"expense": map[string]interface{}{"amount": 250}}, nil
		}},
		passThrough(StageRecord, nil),
	)
	c := NewChain(registry, st, sink)

	rec, err := c.SubmitReceipt(context.Background(), testContext(), "https://a/receipt.png")
	if err != nil {
		t.Fatalf("SubmitReceipt() error: %v", err)
	}
	if rec.Status != models.ReceiptPending {
		t.Errorf("initial status = %q, want pending", rec.Status)
	}
	c.Wait()

	got, err := st.GetReceipt(context.Background(), rec.ID)
	if err != nil {
		t.Fatalf("GetReceipt() error: %v", err)
	}
	if got.Status != models.ReceiptCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}

	// The OCR output must have reached the classifier.
	if classifierSaw["receipt_text"] != "CCD\nTOTAL 250" {
		t.Errorf("classifier params = %v", classifierSaw)
	}

	types := sink.types()
	if len(types) != 1 || types[0] != models.EventReceiptQueued {
		t.Errorf("events = %v, want one receipt.queued", types)
	}
}

func TestChainStageFailure(t *testing.T) {
	st := store.NewMemoryStore()
	sink := &recordingSink{}

	registry := NewRegistry(
		passThrough(StageOCR, nil),
		&stubProcessor{name: StageClassify, fn: func(params map[string]interface{}) (map[string]interface{}, error) {
			return nil, context.DeadlineExceeded
		}},
		passThrough(StageRecord, nil),
	)
	c := NewChain(registry, st, sink)

	rec, err := c.SubmitReceipt(context.Background(), testContext(), "https://a/receipt.png")
	if err != nil {
		t.Fatalf("SubmitReceipt() error: %v", err)
	}
	c.Wait()

	got, _ := st.GetReceipt(context.Background(), rec.ID)
	if got.Status != models.ReceiptFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if !strings.Contains(got.Error, StageClassify) {
		t.Errorf("error = %q, want the failing stage named", got.Error)
	}

	types := sink.types()
	if len(types) != 2 || types[1] != models.EventReceiptFailed {
		t.Errorf("events = %v, want queued then failed", types)
	}
}

func TestChainPanicIsContained(t *testing.T) {
	st := store.NewMemoryStore()
	sink := &recordingSink{}

	registry := NewRegistry(
		&stubProcessor{name: StageOCR, fn: func(params map[string]interface{}) (map[string]interface{}, error) {
			panic("ocr blew up")
		}},
		passThrough(StageClassify, nil),
		passThrough(StageRecord, nil),
	)
	c := NewChain(registry, st, sink)

	rec, err := c.SubmitReceipt(context.Background(), testContext(), "https://a/receipt.png")
	if err != nil {
		t.Fatalf("SubmitReceipt() error: %v", err)
	}
	c.Wait()

	got, _ := st.GetReceipt(context.Background(), rec.ID)
	if got.Status != models.ReceiptFailed {
		t.Errorf("status = %q, want failed after panic", got.Status)
	}
	if !strings.Contains(got.Error, "panic") {
		t.Errorf("error = %q, want panic recorded", got.Error)
	}
}

func TestChainMissingProcessor(t *testing.T) {
	st := store.NewMemoryStore()
	c := NewChain(NewRegistry(), st, &recordingSink{})

	rec, err := c.SubmitReceipt(context.Background(), testContext(), "https://a/receipt.png")
	if err != nil {
		t.Fatalf("SubmitReceipt() error: %v", err)
	}
	c.Wait()

	got, _ := st.GetReceipt(context.Background(), rec.ID)
	if got.Status != models.ReceiptFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
}

func TestClassifyProcessor(t *testing.T) {
	p := NewClassifyProcessor()

	out, err := p.Process(context.Background(), testContext(), map[string]interface{}{
		"receipt_text": "CCD Koramangala\nTOTAL rs. 250\nthank you",
	})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	expense, ok := out["expense"].(models.ExtractedExpense)
	if !ok {
		t.Fatalf("expense has type %T", out["expense"])
	}
	if expense.Amount == nil || *expense.Amount != 250 {
		t.Errorf("amount = %v, want 250", expense.Amount)
	}
	if expense.Currency != "INR" {
		t.Errorf("currency = %q, want INR", expense.Currency)
	}
}

func TestRecorderProcessor(t *testing.T) {
	st := store.NewMemoryStore()
	p := NewRecorderProcessor(st)

	out, err := p.Process(context.Background(), testContext(), map[string]interface{}{
		"receipt_id": "rcp1",
		"expense":    map[string]interface{}{"amount": 250},
	})
	if err != nil {
		t.Fatalf("Process() error: %v", err)
	}

	id, _ := out["entry_id"].(string)
	if id == "" {
		t.Fatal("no entry_id returned")
	}
	entry, err := st.GetEntry(context.Background(), id)
	if err != nil {
		t.Fatalf("GetEntry() error: %v", err)
	}
	if entry.Agent != StageRecord || entry.Status != models.ExecutionSuccess {
		t.Errorf("entry = %+v", entry)
	}
}
