package speech

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/paisaflow/paisaflow/pkg/contracts"
)

func deepgramBody(alternatives ...[2]interface{}) map[string]interface{} {
	alts := make([]map[string]interface{}, 0, len(alternatives))
	for _, a := range alternatives {
		alts = append(alts, map[string]interface{}{
			"transcript": a[0],
			"confidence": a[1],
		})
	}
	return map[string]interface{}{
		"results": map[string]interface{}{
			"channels": []map[string]interface{}{
				{
					"detected_language": "en",
					"alternatives":      alts,
				},
			},
		},
	}
}

func TestTranscribe(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		if body["url"] != "https://a/note.wav" {
			t.Errorf("request url = %q", body["url"])
		}

		json.NewEncoder(w).Encode(deepgramBody(
			[2]interface{}{"I spent fifty rupees on chai", 0.92},
			[2]interface{}{"I spend fifty rupees on chai", 0.81},
			[2]interface{}{"I spent fifteen rupees on chai", 0.64},
		))
	}))
	defer srv.Close()

	tr := NewDeepgramTranscriber("dg-key", "nova-2", WithEndpoint(srv.URL))

	result, err := tr.Transcribe(context.Background(), "https://a/note.wav", "en")
	if err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}

	if result.Text != "I spent fifty rupees on chai" {
		t.Errorf("text = %q", result.Text)
	}
	if result.Confidence != 0.92 {
		t.Errorf("confidence = %v, want 0.92", result.Confidence)
	}
	if result.Language != "en" {
		t.Errorf("language = %q, want en", result.Language)
	}
	if len(result.Alternates) != 2 {
		t.Fatalf("alternates = %d, want 2", len(result.Alternates))
	}
	if result.Alternates[0] != "I spend fifty rupees on chai" {
		t.Errorf("alternates[0] = %q", result.Alternates[0])
	}

	if gotAuth != "Token dg-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
	for _, want := range []string{"model=nova-2", "punctuate=true", "smart_format=true", "diarize=false", "alternatives=3", "language=en"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestTranscribeDetectsLanguageWithoutHint(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(deepgramBody([2]interface{}{"hello", 0.9}))
	}))
	defer srv.Close()

	tr := NewDeepgramTranscriber("dg-key", "", WithEndpoint(srv.URL))

	if _, err := tr.Transcribe(context.Background(), "https://a/note.wav", ""); err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}
	if !strings.Contains(gotQuery, "detect_language=true") {
		t.Errorf("query %q missing detect_language", gotQuery)
	}
	if strings.Contains(gotQuery, "language=en") {
		t.Errorf("query %q should not pin a language", gotQuery)
	}
}

func TestTranscribeNoUsableChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"results": map[string]interface{}{"channels": []interface{}{}}})
	}))
	defer srv.Close()

	tr := NewDeepgramTranscriber("dg-key", "nova-2", WithEndpoint(srv.URL))

	_, err := tr.Transcribe(context.Background(), "https://a/note.wav", "en")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var terr *contracts.TranscriptionError
	if !errors.As(err, &terr) {
		t.Fatalf("error is %T, want TranscriptionError", err)
	}
}

func TestTranscribeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(deepgramBody([2]interface{}{"recovered", 0.9}))
	}))
	defer srv.Close()

	tr := NewDeepgramTranscriber("dg-key", "nova-2", WithEndpoint(srv.URL))

	result, err := tr.Transcribe(context.Background(), "https://a/note.wav", "en")
	if err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}
	if result.Text != "recovered" {
		t.Errorf("text = %q", result.Text)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestTranscribeDoesNotRetryBadAudio(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	tr := NewDeepgramTranscriber("dg-key", "nova-2", WithEndpoint(srv.URL))

	_, err := tr.Transcribe(context.Background(), "https://a/note.wav", "en")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var terr *contracts.TranscriptionError
	if !errors.As(err, &terr) {
		t.Fatalf("error is %T, want TranscriptionError", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 400)", calls.Load())
	}
}

func TestTranscribeUnconfigured(t *testing.T) {
	tr := NewDeepgramTranscriber("", "nova-2")

	_, err := tr.Transcribe(context.Background(), "https://a/note.wav", "en")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var terr *contracts.TranscriptionError
	if !errors.As(err, &terr) {
		t.Fatalf("error is %T, want TranscriptionError", err)
	}
}

func TestTranscribeEmptyAudioURL(t *testing.T) {
	tr := NewDeepgramTranscriber("dg-key", "nova-2")

	if _, err := tr.Transcribe(context.Background(), "", "en"); err == nil {
		t.Fatal("expected error, got nil")
	}
}
