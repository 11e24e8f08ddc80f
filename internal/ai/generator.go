package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	ErrGenerationTimeout = errors.New("generation_timeout")
	ErrEmptyCompletion   = errors.New("empty_completion")
)

// Generator produces one table-talk utterance from a prepared prompt. The
// context carries the hard deadline; implementations must respect it.
type Generator interface {
	Generate(ctx context.Context, sys, user string) (string, error)
}

// OpenAIConfig configures the chat-completions client. Any endpoint speaking
// the OpenAI dialect works (DeepSeek, local runtimes, proxies).
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
}

type openAIGenerator struct {
	cfg OpenAIConfig
}

// NewOpenAIGenerator builds a chat-completions backed Generator.
func NewOpenAIGenerator(cfg OpenAIConfig) Generator {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://api.deepseek.com/v1"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 220
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.9
	}
	return &openAIGenerator{cfg: cfg}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *openAIGenerator) Generate(ctx context.Context, sys, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: sys},
			{Role: "user", Content: user},
		},
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	url := strings.TrimRight(g.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)
	}

	resp, err := g.cfg.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ErrGenerationTimeout
		}
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var out chatResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("chat completion: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// fallbackSpeech is the canned line used when generation fails or times out.
// It still references the agent's top suspect so the table talk stays coherent.
func fallbackSpeech(persona Persona, targetPosition int, suspicion float64) string {
	switch {
	case targetPosition == 0 && persona.Special == SpecialRookieChaos:
		return "Honestly I keep changing my mind. Can someone with a real read go first?"
	case targetPosition == 0:
		return "I don't have a solid read yet. Let me listen another round before I point fingers."
	case suspicion >= 80:
		return fmt.Sprintf("I'll keep it short: seat %d has felt off all game and I'm not letting it go.", targetPosition)
	case suspicion >= 50:
		return fmt.Sprintf("I'm still watching seat %d. Something about their story doesn't line up for me.", targetPosition)
	default:
		return fmt.Sprintf("Honestly seat %d reads fine to me so far. I'd rather look elsewhere today.", targetPosition)
	}
}
