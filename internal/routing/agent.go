// Package routing implements the Router Agent: it classifies an
// inbound request's modality and intent, extracts entities, and
// selects the downstream processor from a fixed table.
//
// Per request the agent walks ClassifyModality → BuildPrompt → Reason
// → ExtractDecision → Log → Emit. No individual stage retries; the
// reasoning client retries its own transient failures internally.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paisaflow/paisaflow/internal/agent"
	"github.com/paisaflow/paisaflow/internal/tool"
	"github.com/paisaflow/paisaflow/pkg/models"
)

// FallbackConfidence is the confidence assigned to the deterministic
// modality-based route when structured extraction fails.
const FallbackConfidence = 0.5

// FallbackReasoning is the fixed justification on fallback decisions.
const FallbackReasoning = "fallback routing based on input type"

const systemInstruction = `You are the intent router for an expense-tracking assistant.
Classify the user's request and respond with ONLY a JSON object, no other text:
{
  "intent": "add_expense" | "query_expenses" | "split_expense" | "get_insights" | "unknown",
  "confidence": <number between 0.0 and 1.0>,
  "params": { <extracted entities: amount, currency, merchant, category, date, query terms> },
  "next_steps": [ <short human-readable steps> ],
  "reasoning": "<one sentence justification>"
}
Heuristics: words like "spent", "paid", "cost" or currency symbols indicate add_expense;
"how much", "show me", "list" indicate query_expenses; "split", "share", "divide"
indicate split_expense; "suggest", "recommend", "analyze" indicate get_insights.
When you cannot tell, use "unknown" with low confidence.`

// Agent is the Router Agent. Construct once and share; the tool set
// and instruction are immutable.
type Agent struct {
	runner *agent.Runner
	tools  *tool.Registry
}

// decisionWire is the JSON shape the reasoning call is asked for.
type decisionWire struct {
	Intent     string                 `json:"intent"`
	Confidence float64                `json:"confidence"`
	Params     map[string]interface{} `json:"params"`
	NextSteps  []string               `json:"next_steps"`
	Reasoning  string                 `json:"reasoning"`
}

// New creates the Router Agent with its fixed tool set.
func New(runner *agent.Runner) *Agent {
	return &Agent{
		runner: runner,
		tools:  newRouterTools(),
	}
}

// Route classifies one normalized request and returns the decision.
func (a *Agent) Route(ctx context.Context, ec *models.ExecutionContext, req *models.RouteRequest) (*models.RouterDecision, error) {
	out, err := a.runner.Run(ctx, ec, a, req)
	if err != nil {
		return nil, err
	}
	return out.(*models.RouterDecision), nil
}

// ── agent.Spec implementation ───────────────────────────────

// Name implements agent.Spec.
func (a *Agent) Name() string { return "router" }

// Tools implements agent.Spec.
func (a *Agent) Tools() *tool.Registry { return a.tools }

// SystemInstruction implements agent.Spec.
func (a *Agent) SystemInstruction() string { return systemInstruction }

// BuildPrompt renders the request and pre-computed heuristic hints
// into the reasoning prompt. The hints come from the agent's own
// tools, invoked directly rather than through the reasoning call.
func (a *Agent) BuildPrompt(ctx context.Context, ec *models.ExecutionContext, input interface{}) (string, error) {
	req := input.(*models.RouteRequest)
	modality := ClassifyModality(req)
	text := requestText(req)

	var b strings.Builder
	fmt.Fprintf(&b, "Input modality: %s\n", modality)
	if text != "" {
		fmt.Fprintf(&b, "User input: %s\n", text)
	}
	if req.ImageURL != "" {
		b.WriteString("The user attached a receipt image.\n")
	}
	if req.AudioURL != "" {
		b.WriteString("The user sent a voice note (transcript above if available).\n")
	}

	// Heuristic hints pre-computed via the tool registry.
	if hint, err := a.tools.Invoke("detect_intent", map[string]interface{}{
		"text":     text,
		"is_image": modality == models.ModalityImage,
	}); err == nil {
		fmt.Fprintf(&b, "Keyword heuristic suggests: %v (confidence %v)\n", hint["intent"], hint["confidence"])
	}
	if amt, err := a.tools.Invoke("extract_amount", map[string]interface{}{"text": text}); err == nil {
		if amount, ok := amt["amount"]; ok && amount != nil {
			fmt.Fprintf(&b, "Detected amount: %v\n", amount)
		}
	}

	b.WriteString("Classify the intent and extract entities.")
	return b.String(), nil
}

// ParseOutput implements agent.Spec.
func (a *Agent) ParseOutput(obj json.RawMessage) (interface{}, error) {
	var wire decisionWire
	if err := json.Unmarshal(obj, &wire); err != nil {
		return nil, err
	}
	if wire.Intent == "" {
		return nil, fmt.Errorf("decision missing intent")
	}
	return &models.RouterDecision{
		Intent:     models.ParseIntent(wire.Intent),
		Confidence: wire.Confidence,
		Params:     wire.Params,
		NextSteps:  wire.NextSteps,
		Reasoning:  wire.Reasoning,
	}, nil
}

// Fallback produces the deterministic modality-based route used when
// the reasoning response cannot be parsed. It never fails.
func (a *Agent) Fallback(ec *models.ExecutionContext, input interface{}, rawText string) interface{} {
	req := input.(*models.RouteRequest)
	modality := ClassifyModality(req)

	// Recording an expense is the dominant request; the fallback
	// assumes it and lets the modality pick the processor.
	intent := models.IntentAddExpense

	return &models.RouterDecision{
		Intent:     intent,
		Processor:  RouteFor(intent, modality),
		Confidence: FallbackConfidence,
		Params:     map[string]interface{}{},
		Reasoning:  FallbackReasoning,
	}
}

// PostProcess clamps the confidence, fills the processor from the
// routing table, and flags unknown intents for user confirmation.
func (a *Agent) PostProcess(ec *models.ExecutionContext, input interface{}, output interface{}) interface{} {
	req := input.(*models.RouteRequest)
	decision := output.(*models.RouterDecision)
	modality := ClassifyModality(req)

	if !decision.Intent.Valid() {
		decision.Intent = models.IntentUnknown
	}
	if decision.Confidence < 0 {
		decision.Confidence = 0
	}
	if decision.Confidence > 1 {
		decision.Confidence = 1
	}
	if decision.Params == nil {
		decision.Params = map[string]interface{}{}
	}
	if decision.Processor == "" {
		decision.Processor = RouteFor(decision.Intent, modality)
	}
	if decision.Intent == models.IntentUnknown {
		decision.RequiresConfirmation = true
	}
	decision.Params["modality"] = string(modality)
	return decision
}

// Event implements agent.Spec.
func (a *Agent) Event(output interface{}) (models.EventType, map[string]interface{}) {
	decision := output.(*models.RouterDecision)
	return models.EventRoutingCompleted, map[string]interface{}{
		"intent":     string(decision.Intent),
		"processor":  decision.Processor,
		"confidence": decision.Confidence,
	}
}

// requestText returns whichever text field the request carries.
func requestText(req *models.RouteRequest) string {
	if req.Text != "" {
		return req.Text
	}
	return req.SMSText
}
