// Package speech wraps an external speech-to-text provider behind the
// uniform contracts.Transcriber interface.
//
// The shipped provider speaks the Deepgram pre-recorded API: the
// audio is referenced by URL, punctuation and smart formatting are
// requested, diarization is off, and up to three ranked alternatives
// are returned so the adapter can surface two runner-ups next to the
// primary transcript.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/rs/zerolog/log"

	"github.com/paisaflow/paisaflow/pkg/contracts"
	"github.com/paisaflow/paisaflow/pkg/models"
)

// maxAlternates is how many runner-up transcripts the adapter
// surfaces, best first, primary excluded.
const maxAlternates = 2

// DeepgramTranscriber implements contracts.Transcriber against the
// Deepgram /v1/listen endpoint.
type DeepgramTranscriber struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// DeepgramOption customizes the transcriber.
type DeepgramOption func(*DeepgramTranscriber)

// WithEndpoint overrides the API endpoint (tests).
func WithEndpoint(endpoint string) DeepgramOption {
	return func(t *DeepgramTranscriber) { t.endpoint = endpoint }
}

// WithHTTPClient substitutes the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) DeepgramOption {
	return func(t *DeepgramTranscriber) { t.client = hc }
}

// NewDeepgramTranscriber creates the adapter. The API key may be
// empty; Transcribe then fails with a TranscriptionError, keeping the
// unconfigured case a per-call failure rather than a startup crash.
func NewDeepgramTranscriber(apiKey, model string, opts ...DeepgramOption) *DeepgramTranscriber {
	if model == "" {
		model = "nova-2"
	}
	t := &DeepgramTranscriber{
		endpoint: "https://api.deepgram.com",
		apiKey:   apiKey,
		model:    model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type deepgramRequest struct {
	URL string `json:"url"`
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe submits the audio reference and returns the primary
// transcript with up to two alternates, provider-ranked. Transient
// provider failures are retried with backoff up to the fixed budget.
func (t *DeepgramTranscriber) Transcribe(ctx context.Context, audioURL, languageHint string) (*models.TranscriptionResult, error) {
	if t.apiKey == "" {
		return nil, &contracts.TranscriptionError{Reason: "speech provider not configured (missing api key)"}
	}
	if audioURL == "" {
		return nil, &contracts.TranscriptionError{Reason: "empty audio reference"}
	}

	var result *models.TranscriptionResult

	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(3),
		retry.DelayType(func(n uint, err error, config retry.DelayContext) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
		retry.RetryIf(contracts.IsTransient),
		retry.LastErrorOnly(true),
	)

	err := r.Do(func() error {
		var callErr error
		result, callErr = t.call(ctx, audioURL, languageHint)
		return callErr
	})
	if err != nil {
		if contracts.IsTransient(err) {
			return nil, &contracts.TranscriptionError{Reason: "provider unavailable", Err: err}
		}
		return nil, err
	}

	log.Debug().
		Str("audio", audioURL).
		Float64("confidence", result.Confidence).
		Int("alternates", len(result.Alternates)).
		Msg("Transcription complete")

	return result, nil
}

func (t *DeepgramTranscriber) call(ctx context.Context, audioURL, languageHint string) (*models.TranscriptionResult, error) {
	q := url.Values{}
	q.Set("model", t.model)
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	q.Set("diarize", "false")
	q.Set("alternatives", "3")
	if languageHint != "" {
		q.Set("language", languageHint)
	} else {
		q.Set("detect_language", "true")
	}

	body, _ := json.Marshal(deepgramRequest{URL: audioURL})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"/v1/listen?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return nil, &contracts.TranscriptionError{Reason: "create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Token "+t.apiKey)

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, &contracts.TransientUpstreamError{Component: "speech", Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
			return nil, &contracts.TransientUpstreamError{
				Component: "speech",
				Err:       fmt.Errorf("status %d: %s", httpResp.StatusCode, string(respBody)),
			}
		}
		return nil, &contracts.TranscriptionError{
			Reason: fmt.Sprintf("audio could not be processed (status %d)", httpResp.StatusCode),
		}
	}

	var dgResp deepgramResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&dgResp); err != nil {
		return nil, &contracts.TranscriptionError{Reason: "decode response", Err: err}
	}

	if len(dgResp.Results.Channels) == 0 || len(dgResp.Results.Channels[0].Alternatives) == 0 {
		return nil, &contracts.TranscriptionError{Reason: "no usable transcript channel"}
	}

	channel := dgResp.Results.Channels[0]
	primary := channel.Alternatives[0]

	language := channel.DetectedLanguage
	if language == "" {
		language = languageHint
	}

	var alternates []string
	for _, alt := range channel.Alternatives[1:] {
		if alt.Transcript == "" {
			continue
		}
		alternates = append(alternates, alt.Transcript)
		if len(alternates) == maxAlternates {
			break
		}
	}

	return &models.TranscriptionResult{
		Text:       primary.Transcript,
		Confidence: primary.Confidence,
		Language:   language,
		Alternates: alternates,
	}, nil
}
