package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paisaflow/paisaflow/internal/agent"
	"github.com/paisaflow/paisaflow/internal/api"
	"github.com/paisaflow/paisaflow/internal/api/handlers"
	"github.com/paisaflow/paisaflow/internal/pipeline"
	"github.com/paisaflow/paisaflow/internal/reasoning"
	"github.com/paisaflow/paisaflow/internal/routing"
	"github.com/paisaflow/paisaflow/internal/store"
	"github.com/paisaflow/paisaflow/internal/voice"
	"github.com/paisaflow/paisaflow/pkg/models"
)

type stubClient struct {
	text string
}

func (c *stubClient) Generate(ctx context.Context, systemInstruction, prompt string) (*reasoning.Result, error) {
	return &reasoning.Result{Text: c.text, Provider: "stub", Model: "stub-1"}, nil
}

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(ctx context.Context, audioURL, languageHint string) (*models.TranscriptionResult, error) {
	return &models.TranscriptionResult{Text: "spent 250 on chai", Confidence: 0.9, Language: "en"}, nil
}

type nopSink struct{}

func (nopSink) Emit(event models.Event) {}

func newTestServer(t *testing.T, responseText string) (*httptest.Server, *store.MemoryStore, *pipeline.Chain) {
	t.Helper()

	st := store.NewMemoryStore()
	runner := agent.NewRunner(&stubClient{text: responseText}, st, nopSink{})
	routerAgent := routing.New(runner)
	voiceAgent := voice.New(runner, stubTranscriber{})
	chain := pipeline.NewChain(
		pipeline.NewRegistry(
			pipeline.NewOCRProcessor(&stubClient{text: "CCD\nTOTAL rs. 250"}),
			pipeline.NewClassifyProcessor(),
			pipeline.NewRecorderProcessor(st),
		),
		st,
		nopSink{},
	)

	h := handlers.New(routerAgent, voiceAgent, st, chain, "test")
	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, st, chain
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func TestRouteEndpoint(t *testing.T) {
	srv, st, _ := newTestServer(t, `{"intent":"add_expense","confidence":0.9,"params":{"amount":250},"reasoning":"expense keywords"}`)

	resp := postJSON(t, srv.URL+"/api/v1/route", map[string]interface{}{
		"user_id": "u1",
		"input":   map[string]interface{}{"text": "spent 250 on chai"},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var decision models.RouterDecision
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decision.Intent != models.IntentAddExpense {
		t.Errorf("intent = %q, want add_expense", decision.Intent)
	}
	if decision.Processor != "expense-classifier" {
		t.Errorf("processor = %q, want expense-classifier", decision.Processor)
	}

	// The invocation must have left its log entry.
	entries, err := st.ListEntries(context.Background(), "u1", 0)
	if err != nil {
		t.Fatalf("ListEntries() error: %v", err)
	}
	if len(entries) != 1 || entries[0].Agent != "router" {
		t.Errorf("entries = %+v, want one router entry", entries)
	}
}

func TestRouteEndpointRejectsMissingUser(t *testing.T) {
	srv, _, _ := newTestServer(t, "{}")

	resp := postJSON(t, srv.URL+"/api/v1/route", map[string]interface{}{
		"input": map[string]interface{}{"text": "spent 250"},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestVoiceEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, `{"amount":250,"currency":"INR","description":"chai","merchant":null,"category":"food","date":null,"confidence":0.9}`)

	resp := postJSON(t, srv.URL+"/api/v1/voice", map[string]interface{}{
		"user_id":   "u1",
		"audio_url": "https://a/note.wav",
		"language":  "en",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var result models.VoiceResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Expense == nil || result.Expense.Amount == nil || *result.Expense.Amount != 250 {
		t.Errorf("expense = %+v", result.Expense)
	}
	if result.Transcription == nil || result.Transcription.Text != "spent 250 on chai" {
		t.Errorf("transcription = %+v", result.Transcription)
	}
}

func TestVoiceEndpointRequiresAudioURL(t *testing.T) {
	srv, _, _ := newTestServer(t, "{}")

	resp := postJSON(t, srv.URL+"/api/v1/voice", map[string]interface{}{"user_id": "u1"})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestReceiptEndpoints(t *testing.T) {
	srv, _, chain := newTestServer(t, "{}")

	resp := postJSON(t, srv.URL+"/api/v1/receipts", map[string]interface{}{
		"user_id":   "u1",
		"image_url": "https://a/receipt.png",
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var rec models.ReceiptRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rec.Status != models.ReceiptPending {
		t.Errorf("status = %q, want pending", rec.Status)
	}

	chain.Wait()

	getResp, err := http.Get(srv.URL + "/api/v1/receipts/" + rec.ID)
	if err != nil {
		t.Fatalf("GET receipt: %v", err)
	}
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", getResp.StatusCode)
	}

	var final models.ReceiptRecord
	if err := json.NewDecoder(getResp.Body).Decode(&final); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if final.Status != models.ReceiptCompleted {
		t.Errorf("status = %q, want completed (error %q)", final.Status, final.Error)
	}
}

func TestGetReceiptNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t, "{}")

	resp, err := http.Get(srv.URL + "/api/v1/receipts/missing")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestLogsEndpoints(t *testing.T) {
	srv, st, _ := newTestServer(t, "{}")

	entry := &models.ExecutionLogEntry{
		ID:      "e1",
		Agent:   "router",
		Context: models.ExecutionContext{UserID: "u1", RequestID: "r1"},
		Status:  models.ExecutionSuccess,
	}
	if err := st.AppendEntry(context.Background(), entry); err != nil {
		t.Fatalf("AppendEntry() error: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/v1/logs/?user_id=u1")
	if err != nil {
		t.Fatalf("GET logs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var listing struct {
		Entries []models.ExecutionLogEntry `json:"entries"`
		Count   int                        `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if listing.Count != 1 || listing.Entries[0].ID != "e1" {
		t.Errorf("listing = %+v", listing)
	}

	one, err := http.Get(srv.URL + "/api/v1/logs/e1")
	if err != nil {
		t.Fatalf("GET log: %v", err)
	}
	defer one.Body.Close()
	if one.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", one.StatusCode)
	}

	missing, err := http.Get(srv.URL + "/api/v1/logs/nope")
	if err != nil {
		t.Fatalf("GET log: %v", err)
	}
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", missing.StatusCode)
	}
}

func TestHealthAndVersion(t *testing.T) {
	srv, _, _ := newTestServer(t, "{}")

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}

	vresp, err := http.Get(srv.URL + "/version")
	if err != nil {
		t.Fatalf("GET version: %v", err)
	}
	defer vresp.Body.Close()
	var v map[string]string
	if err := json.NewDecoder(vresp.Body).Decode(&v); err != nil {
		t.Fatalf("decode version: %v", err)
	}
	if v["version"] != "test" {
		t.Errorf("version = %q, want test", v["version"])
	}
}
