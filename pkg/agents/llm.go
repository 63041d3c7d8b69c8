package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rwa-tokenizer/pkg/config"
)

// LLM is a thin client for the supported chat providers. A zero provider
// means no model is configured and callers fall back to rules.
type LLM struct {
	client *http.Client

	provider   string // "anthropic", "openai", "ollama"
	apiKey     string
	model      string
	apiBaseURL string
	maxTokens  int
}

func NewLLM(cfg *config.Server) *LLM {
	l := &LLM{
		client:    &http.Client{Timeout: cfg.AITimeout},
		maxTokens: cfg.AIMaxTokens,
	}
	if l.maxTokens <= 0 {
		l.maxTokens = 1024
	}

	provider := cfg.AIProvider
	if provider == "" {
		switch {
		case cfg.AnthropicAPIKey != "":
			provider = "anthropic"
		case cfg.OpenAIAPIKey != "":
			provider = "openai"
		case cfg.OllamaURL != "":
			provider = "ollama"
		}
	}

	switch provider {
	case "anthropic":
		l.apiKey = cfg.AnthropicAPIKey
		l.model = modelOr(cfg.AIModel, "claude-sonnet-4-20250514")
		l.apiBaseURL = "https://api.anthropic.com/v1/messages"
	case "openai":
		l.apiKey = cfg.OpenAIAPIKey
		l.model = modelOr(cfg.AIModel, "gpt-4o-mini")
		l.apiBaseURL = "https://api.openai.com/v1/chat/completions"
	case "ollama":
		l.model = modelOr(cfg.AIModel, "llama3.1")
		l.apiBaseURL = strings.TrimRight(cfg.OllamaURL, "/") + "/api/chat"
	}
	if (provider == "ollama" && cfg.OllamaURL != "") || l.apiKey != "" {
		l.provider = provider
	}

	if l.provider != "" {
		log.Info().Str("provider", l.provider).Str("model", l.model).Msg("🤖 LLM extractor initialized")
	} else {
		log.Warn().Msg("⚠️ No AI provider configured - keyword extraction only")
	}
	return l
}

func (l *LLM) Enabled() bool {
	return l != nil && l.provider != ""
}

func (l *LLM) Provider() string {
	if l == nil {
		return ""
	}
	return l.provider
}

// Complete sends a single-turn prompt and returns the model's text.
func (l *LLM) Complete(ctx context.Context, prompt string) (string, error) {
	switch l.Provider() {
	case "anthropic":
		return l.callAnthropic(ctx, prompt)
	case "openai":
		return l.callOpenAI(ctx, prompt)
	case "ollama":
		return l.callOllama(ctx, prompt)
	default:
		return "", fmt.Errorf("no AI provider configured")
	}
}

func (l *LLM) callAnthropic(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model":      l.model,
		"max_tokens": l.maxTokens,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}
	respBody, err := l.post(ctx, reqBody, map[string]string{
		"x-api-key":         l.apiKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("anthropic: decode: %w", err)
	}
	if len(result.Content) > 0 {
		return result.Content[0].Text, nil
	}
	return "", fmt.Errorf("empty response from anthropic")
}

func (l *LLM) callOpenAI(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model": l.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens": l.maxTokens,
	}
	respBody, err := l.post(ctx, reqBody, map[string]string{"Authorization": "Bearer " + l.apiKey})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("openai: decode: %w", err)
	}
	if len(result.Choices) > 0 {
		return result.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("empty response from openai")
}

func (l *LLM) callOllama(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"model": l.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"stream": false,
		"format": "json",
	}
	respBody, err := l.post(ctx, reqBody, nil)
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("ollama: decode: %w", err)
	}
	if result.Message.Content == "" {
		return "", fmt.Errorf("empty response from ollama")
	}
	return result.Message.Content, nil
}

func (l *LLM) post(ctx context.Context, reqBody interface{}, headers map[string]string) ([]byte, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.apiBaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}
	log.Debug().Str("provider", l.provider).Int("status", resp.StatusCode).Dur("took", time.Since(start)).Msg("llm call")
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}
	return respBody, nil
}

// extractJSON strips code fences and any prose around the first object.
func extractJSON(s string) []byte {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return []byte(s[start : end+1])
	}
	return []byte(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func modelOr(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}
