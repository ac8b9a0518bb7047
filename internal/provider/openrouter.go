package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultAPIBase  = "https://openrouter.ai/api/v1"
	maxChatAttempts = 3
)

var (
	backoffBase = 2 * time.Second
	backoffCap  = 10 * time.Second
)

// OpenRouterProvider implements LLMProvider against any OpenAI-compatible
// chat completions endpoint (OpenRouter, OpenAI, vLLM).
type OpenRouterProvider struct {
	apiKey       string
	apiBase      string
	defaultModel string
	httpClient   *http.Client
}

// NewOpenRouterProvider creates a provider with bounded retry and a hard
// per-call timeout.
func NewOpenRouterProvider(apiKey, apiBase, defaultModel string, callTimeout time.Duration) *OpenRouterProvider {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	if defaultModel == "" {
		defaultModel = "nvidia/nemotron-nano-12b-v2-vl:free"
	}
	if callTimeout <= 0 {
		callTimeout = 60 * time.Second
	}
	return &OpenRouterProvider{
		apiKey:       apiKey,
		apiBase:      strings.TrimSuffix(apiBase, "/"),
		defaultModel: defaultModel,
		httpClient:   &http.Client{Timeout: callTimeout},
	}
}

// DefaultModel returns the configured default model.
func (p *OpenRouterProvider) DefaultModel() string {
	return p.defaultModel
}

// Chat sends a completion request. Transient failures (timeouts, 429, 5xx)
// are retried with exponential backoff up to maxChatAttempts; exhaustion
// returns an error wrapping ErrInvocationExhausted.
func (p *OpenRouterProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	body := map[string]any{
		"model":       model,
		"messages":    req.Messages,
		"max_tokens":  req.MaxTokens,
		"temperature": req.Temperature,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxChatAttempts; attempt++ {
		if attempt > 0 {
			backoff := backoffBase << (attempt - 1)
			if backoff > backoffCap {
				backoff = backoffCap
			}
			slog.Warn("Retrying model call", "model", model, "attempt", attempt+1, "backoff", backoff, "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrInvocationExhausted, ctx.Err())
			}
		}

		resp, retryable, err := p.doChat(ctx, jsonBody)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrInvocationExhausted, lastErr)
}

func (p *OpenRouterProvider) doChat(ctx context.Context, jsonBody []byte) (*ChatResponse, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.apiBase+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		// Network errors and client timeouts are retryable.
		return nil, true, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var apiResp chatCompletionResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, false, fmt.Errorf("parse response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return nil, false, fmt.Errorf("no choices in response")
	}

	return &ChatResponse{
		Content:    apiResp.Choices[0].Message.Content,
		Model:      apiResp.Model,
		TokensUsed: apiResp.Usage.TotalTokens,
		Usage:      apiResp.Usage,
	}, false, nil
}

// OpenAI-compatible API response types.
type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
}
