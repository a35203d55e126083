package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/paisaflow/paisaflow/pkg/contracts"
	"github.com/paisaflow/paisaflow/pkg/models"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ── OpenAI-compatible wire protocol ─────────────────────────

type openAIRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *HTTPClient) callOpenAI(ctx context.Context, provider *Provider, systemInstruction, prompt, defaultEndpoint string) (*Result, error) {
	endpoint := provider.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	// Ollama runs locally without credentials; everything else needs a key.
	if provider.APIKey == "" && provider.Kind != "ollama" {
		return nil, &contracts.ConfigurationError{Component: "reasoning/" + provider.Kind, Missing: "api_key"}
	}

	messages := []chatMessage{}
	if systemInstruction != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemInstruction})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	body, _ := json.Marshal(openAIRequest{Model: provider.Model, Messages: messages})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", provider.Kind, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if provider.APIKey != "" {
		if provider.Kind == "azure-openai" {
			httpReq.Header.Set("api-key", provider.APIKey)
		} else {
			httpReq.Header.Set("Authorization", "Bearer "+provider.APIKey)
		}
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyNetworkError(ctx, provider.Kind, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyStatus(provider.Kind, httpResp)
	}

	var oaiResp openAIResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&oaiResp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", provider.Kind, err)
	}

	content := ""
	if len(oaiResp.Choices) > 0 {
		content = oaiResp.Choices[0].Message.Content
	}

	return &Result{
		Text:     content,
		Provider: provider.Name,
		Model:    provider.Model,
		Usage: models.TokenUsage{
			InputTokens:  oaiResp.Usage.PromptTokens,
			OutputTokens: oaiResp.Usage.CompletionTokens,
		},
	}, nil
}

// ── Anthropic wire protocol ─────────────────────────────────

type anthropicRequest struct {
	Model     string        `json:"model"`
	System    string        `json:"system,omitempty"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

func (c *HTTPClient) callAnthropic(ctx context.Context, provider *Provider, systemInstruction, prompt string) (*Result, error) {
	endpoint := provider.Endpoint
	if endpoint == "" {
		endpoint = "https://api.anthropic.com"
	}

	if provider.APIKey == "" {
		return nil, &contracts.ConfigurationError{Component: "reasoning/anthropic", Missing: "api_key"}
	}

	body, _ := json.Marshal(anthropicRequest{
		Model:     provider.Model,
		System:    systemInstruction,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: 1024,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("anthropic: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", provider.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyNetworkError(ctx, "anthropic", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyStatus("anthropic", httpResp)
	}

	var anthResp anthropicResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&anthResp); err != nil {
		return nil, fmt.Errorf("anthropic: decode response: %w", err)
	}

	content := ""
	for _, part := range anthResp.Content {
		if part.Type == "text" {
			content += part.Text
		}
	}

	return &Result{
		Text:     content,
		Provider: provider.Name,
		Model:    provider.Model,
		Usage: models.TokenUsage{
			InputTokens:  anthResp.Usage.InputTokens,
			OutputTokens: anthResp.Usage.OutputTokens,
		},
	}, nil
}

// ── Error classification ────────────────────────────────────

// classifyNetworkError distinguishes caller cancellation from network
// failures, which are transient and retryable.
func classifyNetworkError(ctx context.Context, kind string, err error) error {
	if ctx.Err() != nil && (errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled)) {
		return &contracts.CancellationError{Err: err}
	}
	return &contracts.TransientUpstreamError{
		Component: "reasoning/" + kind,
		Err:       err,
	}
}

// classifyStatus maps an upstream HTTP status to the error taxonomy:
// 429 and 5xx are transient; 401/403 are configuration problems;
// other 4xx are malformed requests and never retried.
func classifyStatus(kind string, resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &contracts.TransientUpstreamError{
			Component: "reasoning/" + kind,
			Err:       fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody)),
		}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &contracts.ConfigurationError{Component: "reasoning/" + kind, Missing: "valid api_key"}
	default:
		return fmt.Errorf("%s: status %d: %s", kind, resp.StatusCode, string(respBody))
	}
}
