package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paisaflow/paisaflow/internal/nlp"
	"github.com/paisaflow/paisaflow/internal/reasoning"
	"github.com/paisaflow/paisaflow/pkg/contracts"
	"github.com/paisaflow/paisaflow/pkg/models"
)

// ── OCR stage ────────────────────────────────────────────────

const ocrInstruction = "You read expense receipts. Return the plain text printed on the " +
	"receipt at the given URL, one line per printed line. Return only the text."

// OCRProcessor pulls the printed text out of a receipt image through
// the reasoning backend.
type OCRProcessor struct {
	reason reasoning.Client
}

func NewOCRProcessor(client reasoning.Client) *OCRProcessor {
	return &OCRProcessor{reason: client}
}

func (p *OCRProcessor) Name() string { return StageOCR }

func (p *OCRProcessor) Process(ctx context.Context, ec *models.ExecutionContext, params map[string]interface{}) (map[string]interface{}, error) {
	imageURL, _ := params["image_url"].(string)
	if imageURL == "" {
		return nil, fmt.Errorf("missing image_url")
	}

	result, err := p.reason.Generate(ctx, ocrInstruction, "Receipt image: "+imageURL)
	if err != nil {
		return nil, fmt.Errorf("ocr extraction: %w", err)
	}
	return map[string]interface{}{
		"receipt_text": result.Text,
		"ocr_tokens":   result.Usage.Total(),
	}, nil
}

// ── Classification stage ─────────────────────────────────────

// ClassifyProcessor turns the OCR text into a structured expense
// using the deterministic heuristics. Receipt text is dense enough
// that the keyword extractors do the job without another model call.
type ClassifyProcessor struct{}

func NewClassifyProcessor() *ClassifyProcessor { return &ClassifyProcessor{} }

func (p *ClassifyProcessor) Name() string { return StageClassify }

func (p *ClassifyProcessor) Process(ctx context.Context, ec *models.ExecutionContext, params map[string]interface{}) (map[string]interface{}, error) {
	text, _ := params["receipt_text"].(string)
	if text == "" {
		return nil, fmt.Errorf("missing receipt_text")
	}

	expense := models.ExtractedExpense{
		Currency:   ec.DefaultCurrency(),
		Confidence: 0.6,
	}
	if amount := nlp.ExtractAmount(text); amount != nil {
		expense.Amount = amount
		expense.Confidence = 0.8
	}
	if c := nlp.DetectCurrency(text); c != "" {
		expense.Currency = c
	}
	if merchant := nlp.ExtractMerchant(text); merchant != nil {
		expense.Merchant = merchant
		if category := nlp.GuessCategory(*merchant); category != nil {
			expense.Category = category
		}
	}
	if expense.Category == nil {
		expense.Category = nlp.GuessCategory(text)
	}

	return map[string]interface{}{"expense": expense}, nil
}

// ── Recording stage ──────────────────────────────────────────

// RecorderProcessor persists the classified expense as an execution
// log entry so the result is visible through the logs API.
type RecorderProcessor struct {
	logs contracts.ExecutionLogStore
	now  func() time.Time
}

func NewRecorderProcessor(logs contracts.ExecutionLogStore) *RecorderProcessor {
	return &RecorderProcessor{logs: logs, now: time.Now}
}

func (p *RecorderProcessor) Name() string { return StageRecord }

func (p *RecorderProcessor) Process(ctx context.Context, ec *models.ExecutionContext, params map[string]interface{}) (map[string]interface{}, error) {
	expense, ok := params["expense"]
	if !ok {
		return nil, fmt.Errorf("missing expense")
	}
	receiptID, _ := params["receipt_id"].(string)

	entry := &models.ExecutionLogEntry{
		ID:    uuid.New().String(),
		Agent: StageRecord,
		Input: map[string]interface{}{
			"receipt_id": receiptID,
		},
		Output: map[string]interface{}{
			"expense": expense,
		},
		Status:    models.ExecutionSuccess,
		CreatedAt: p.now().UTC(),
	}
	if ec != nil {
		entry.Context = *ec
	}
	if err := p.logs.AppendEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("record expense: %w", err)
	}

	return map[string]interface{}{"entry_id": entry.ID}, nil
}
