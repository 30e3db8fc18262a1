package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"replyforge/internal/config"
)

// OpenAIClient is a minimal chat-completions client. Inlined on purpose:
// the call surface here is two endpoints and an SDK would dominate the
// dependency tree.
type OpenAIClient struct {
	apiKey       string
	model        string
	qualityModel string
	baseURL      string
	httpClient   *http.Client
}

func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.openai.com/v1"
	}
	quality := cfg.QualityModel
	if quality == "" {
		quality = cfg.Model
	}
	return &OpenAIClient{
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		qualityModel: quality,
		baseURL:      base,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete issues one chat-completion call and returns the raw text.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("missing llm api key")
	}
	model := c.model
	if req.Tier == TierQuality {
		model = c.qualityModel
	}
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("llm status %d", resp.StatusCode)
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("llm returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}
