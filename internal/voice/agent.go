// Package voice implements the Voice Agent: it transcribes an audio
// reference, reasons over the transcript through the shared agent
// lifecycle, and produces an extracted expense plus a clarification
// list when confidence is low.
package voice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/paisaflow/paisaflow/internal/agent"
	"github.com/paisaflow/paisaflow/internal/nlp"
	"github.com/paisaflow/paisaflow/internal/tool"
	"github.com/paisaflow/paisaflow/pkg/contracts"
	"github.com/paisaflow/paisaflow/pkg/models"
)

// FallbackConfidence is the confidence of the deterministic fallback
// expense when structured extraction fails.
const FallbackConfidence = 0.3

// ClarifyThreshold is the overall confidence below which the whole
// extraction should be reviewed with the user.
const ClarifyThreshold = 0.7

const systemInstruction = `You extract expense details from a voice-note transcript.
Respond with ONLY a JSON object, no other text:
{
  "amount": <number or null>,
  "currency": "<ISO code, e.g. INR>",
  "description": "<short description or null>",
  "merchant": "<merchant name or null>",
  "category": "<food|transport|shopping|groceries|entertainment|utilities|other or null>",
  "date": "<YYYY-MM-DD or null>",
  "confidence": <number between 0.0 and 1.0>
}
Use null for anything you cannot determine — never invent an amount or date.`

// Input carries one voice request through the lifecycle. The
// transcription is filled in during prompt building so that a
// transcription failure is logged like any other lifecycle failure.
type Input struct {
	AudioURL      string                      `json:"audio_url"`
	Language      string                      `json:"language,omitempty"`
	Transcription *models.TranscriptionResult `json:"transcription,omitempty"`
}

// Agent is the Voice Agent. Construct once and share.
type Agent struct {
	runner      *agent.Runner
	transcriber contracts.Transcriber
	tools       *tool.Registry
	now         func() time.Time
}

// Option customizes the Voice Agent.
type Option func(*Agent)

// WithClock fixes the reference time for relative date resolution.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// New creates the Voice Agent.
func New(runner *agent.Runner, transcriber contracts.Transcriber, opts ...Option) *Agent {
	a := &Agent{
		runner:      runner,
		transcriber: transcriber,
		tools:       newVoiceTools(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Process transcribes the referenced audio and extracts the expense.
func (a *Agent) Process(ctx context.Context, ec *models.ExecutionContext, audioURL, language string) (*models.VoiceResult, error) {
	input := &Input{AudioURL: audioURL, Language: language}
	out, err := a.runner.Run(ctx, ec, a, input)
	if err != nil {
		return nil, err
	}
	return out.(*models.VoiceResult), nil
}

// ── agent.Spec implementation ───────────────────────────────

// Name implements agent.Spec.
func (a *Agent) Name() string { return "voice" }

// Tools implements agent.Spec.
func (a *Agent) Tools() *tool.Registry { return a.tools }

// SystemInstruction implements agent.Spec.
func (a *Agent) SystemInstruction() string { return systemInstruction }

// BuildPrompt transcribes the audio and renders the transcript with
// heuristic hints. Transcription happens here so a provider failure
// flows through the lifecycle's failure logging.
func (a *Agent) BuildPrompt(ctx context.Context, ec *models.ExecutionContext, input interface{}) (string, error) {
	in := input.(*Input)

	tr, err := a.transcriber.Transcribe(ctx, in.AudioURL, in.Language)
	if err != nil {
		return "", err
	}
	in.Transcription = tr

	var b strings.Builder
	fmt.Fprintf(&b, "Transcript: %s\n", tr.Text)
	fmt.Fprintf(&b, "Transcription confidence: %.2f\n", tr.Confidence)
	for _, alt := range tr.Alternates {
		fmt.Fprintf(&b, "Alternate transcript: %s\n", alt)
	}
	fmt.Fprintf(&b, "Default currency: %s\n", ec.DefaultCurrency())
	fmt.Fprintf(&b, "Today's date: %s\n", a.now().Format("2006-01-02"))

	if hint, err := a.tools.Invoke("extract_amount", map[string]interface{}{"text": tr.Text}); err == nil {
		if amount, ok := hint["amount"]; ok && amount != nil {
			fmt.Fprintf(&b, "Numeral heuristic found amount: %v\n", amount)
		}
	}

	b.WriteString("Extract the expense fields.")
	return b.String(), nil
}

// expenseWire is the JSON shape asked of the reasoning call.
type expenseWire struct {
	Amount      *float64 `json:"amount"`
	Currency    string   `json:"currency"`
	Description *string  `json:"description"`
	Merchant    *string  `json:"merchant"`
	Category    *string  `json:"category"`
	Date        *string  `json:"date"`
	Confidence  float64  `json:"confidence"`
}

// ParseOutput implements agent.Spec.
func (a *Agent) ParseOutput(obj json.RawMessage) (interface{}, error) {
	var wire expenseWire
	if err := json.Unmarshal(obj, &wire); err != nil {
		return nil, err
	}
	return &models.ExtractedExpense{
		Amount:      wire.Amount,
		Currency:    wire.Currency,
		Description: wire.Description,
		Merchant:    wire.Merchant,
		Category:    wire.Category,
		Date:        wire.Date,
		Confidence:  wire.Confidence,
	}, nil
}

// Fallback returns the raw transcript as a low-confidence expense:
// nil amount, context default currency, description equal to the
// transcript. It never fails.
func (a *Agent) Fallback(ec *models.ExecutionContext, input interface{}, rawText string) interface{} {
	in := input.(*Input)

	var description *string
	if in.Transcription != nil && in.Transcription.Text != "" {
		text := in.Transcription.Text
		description = &text
	}

	return &models.ExtractedExpense{
		Amount:      nil,
		Currency:    ec.DefaultCurrency(),
		Description: description,
		Confidence:  FallbackConfidence,
	}
}

// PostProcess fills gaps with the deterministic heuristics and derives
// the clarification list. Word-number parsing runs only when the
// numeral pattern found nothing; both clarification conditions are
// independent and may both fire.
func (a *Agent) PostProcess(ec *models.ExecutionContext, input interface{}, output interface{}) interface{} {
	in := input.(*Input)
	expense := output.(*models.ExtractedExpense)

	transcript := ""
	trConfidence := 0.0
	if in.Transcription != nil {
		transcript = in.Transcription.Text
		trConfidence = in.Transcription.Confidence
	}

	if expense.Currency == "" {
		if detected := nlp.DetectCurrency(transcript); detected != "" {
			expense.Currency = detected
		} else {
			expense.Currency = ec.DefaultCurrency()
		}
	}
	if expense.Amount == nil {
		if amount := nlp.ExtractAmount(transcript); amount != nil {
			expense.Amount = amount
		} else if amount := nlp.ParseWordNumber(transcript); amount != nil {
			expense.Amount = amount
		}
	}
	if expense.Date == nil {
		expense.Date = nlp.ResolveDateReference(transcript, a.now())
	}
	if expense.Merchant == nil {
		expense.Merchant = nlp.ExtractMerchant(transcript)
	}
	if expense.Category == nil {
		expense.Category = nlp.GuessCategory(transcript)
	}
	if expense.Confidence < 0 {
		expense.Confidence = 0
	}
	if expense.Confidence > 1 {
		expense.Confidence = 1
	}

	// Overall confidence cannot exceed what the transcription itself
	// supports.
	overall := expense.Confidence
	if in.Transcription != nil && trConfidence < overall {
		overall = trConfidence
	}

	var clarifications []string
	if expense.Amount == nil {
		clarifications = append(clarifications, "amount")
	}
	if overall < ClarifyThreshold {
		clarifications = append(clarifications, "review_all_fields")
	}

	guess := nlp.DetectIntent(transcript, false)

	return &models.VoiceResult{
		Transcription:  in.Transcription,
		Expense:        expense,
		Intent:         models.ParseIntent(guess.Intent),
		Clarifications: clarifications,
	}
}

// Event implements agent.Spec.
func (a *Agent) Event(output interface{}) (models.EventType, map[string]interface{}) {
	result := output.(*models.VoiceResult)
	payload := map[string]interface{}{
		"intent":         string(result.Intent),
		"clarifications": result.Clarifications,
	}
	if result.Transcription != nil {
		payload["transcription_confidence"] = result.Transcription.Confidence
	}
	if result.Expense != nil && result.Expense.Amount != nil {
		payload["amount"] = *result.Expense.Amount
	}
	return models.EventVoiceTranscribed, payload
}
