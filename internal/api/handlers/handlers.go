package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/paisaflow/paisaflow/internal/pipeline"
	"github.com/paisaflow/paisaflow/internal/routing"
	"github.com/paisaflow/paisaflow/internal/store"
	"github.com/paisaflow/paisaflow/internal/voice"
	"github.com/paisaflow/paisaflow/pkg/contracts"
	"github.com/paisaflow/paisaflow/pkg/models"
)

// Handlers carries the wired agents and stores for the HTTP surface.
type Handlers struct {
	Router   *routing.Agent
	Voice    *voice.Agent
	Store    store.Store
	Receipts *pipeline.Chain
	Version  string
}

func New(router *routing.Agent, voiceAgent *voice.Agent, st store.Store, receipts *pipeline.Chain, version string) *Handlers {
	return &Handlers{
		Router:   router,
		Voice:    voiceAgent,
		Store:    st,
		Receipts: receipts,
		Version:  version,
	}
}

// ── Health ───────────────────────────────────────────────────

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) GetVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"version": h.Version})
}

// ── Routing ──────────────────────────────────────────────────

type routeBody struct {
	UserID    string                 `json:"user_id"`
	SessionID string                 `json:"session_id"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Input     models.RouteRequest    `json:"input"`
}

// RouteIntent classifies one user input and returns the routing decision.
func (h *Handlers) RouteIntent(w http.ResponseWriter, r *http.Request) {
	var body routeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	ec := executionContext(&body)
	decision, err := h.Router.Route(r.Context(), ec, &body.Input)
	if err != nil {
		respondAgentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, decision)
}

// ── Voice ────────────────────────────────────────────────────

type voiceBody struct {
	UserID    string                 `json:"user_id"`
	SessionID string                 `json:"session_id"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	AudioURL  string                 `json:"audio_url"`
	Language  string                 `json:"language,omitempty"`
}

// ProcessVoice transcribes one audio message and extracts the expense.
func (h *Handlers) ProcessVoice(w http.ResponseWriter, r *http.Request) {
	var body voiceBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if body.AudioURL == "" {
		respondError(w, http.StatusBadRequest, "audio_url is required")
		return
	}

	ec := &models.ExecutionContext{
		UserID:    body.UserID,
		SessionID: body.SessionID,
		RequestID: uuid.New().String(),
		Metadata:  body.Metadata,
	}
	result, err := h.Voice.Process(r.Context(), ec, body.AudioURL, body.Language)
	if err != nil {
		respondAgentError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ── Receipts ─────────────────────────────────────────────────

type receiptBody struct {
	UserID    string                 `json:"user_id"`
	SessionID string                 `json:"session_id"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	ImageURL  string                 `json:"image_url"`
}

// SubmitReceipt queues a receipt image for background extraction.
func (h *Handlers) SubmitReceipt(w http.ResponseWriter, r *http.Request) {
	var body receiptBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if body.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if body.ImageURL == "" {
		respondError(w, http.StatusBadRequest, "image_url is required")
		return
	}

	ec := &models.ExecutionContext{
		UserID:    body.UserID,
		SessionID: body.SessionID,
		RequestID: uuid.New().String(),
		Metadata:  body.Metadata,
	}
	rec, err := h.Receipts.SubmitReceipt(r.Context(), ec, body.ImageURL)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, rec)
}

// GetReceipt returns the status and output of one queued receipt.
func (h *Handlers) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.Store.GetReceipt(r.Context(), id)
	if err != nil {
		var nf *store.ErrNotFound
		if errors.As(err, &nf) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// ── Execution log ────────────────────────────────────────────

// ListLogs returns recent execution log entries, newest first.
func (h *Handlers) ListLogs(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := h.Store.ListEntries(r.Context(), userID, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// GetLog returns one execution log entry by id.
func (h *Handlers) GetLog(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := h.Store.GetEntry(r.Context(), id)
	if err != nil {
		var nf *store.ErrNotFound
		if errors.As(err, &nf) {
			respondError(w, http.StatusNotFound, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

// ── Helpers ──────────────────────────────────────────────────

func executionContext(body *routeBody) *models.ExecutionContext {
	return &models.ExecutionContext{
		UserID:    body.UserID,
		SessionID: body.SessionID,
		RequestID: uuid.New().String(),
		Metadata:  body.Metadata,
	}
}

// respondAgentError maps agent failures onto HTTP status codes.
func respondAgentError(w http.ResponseWriter, err error) {
	switch {
	case contracts.IsCancellation(err):
		respondError(w, 499, "request cancelled")
	case contracts.IsConfiguration(err):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case contracts.IsTransient(err):
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
