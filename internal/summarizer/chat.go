package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"newsdigest/internal/domain"
)

const promptTemplate = `Summarize this news article in a single concise, informative sentence. Reply with the sentence only, without commentary.

Headline: %s
Snippet: %s
Body: %s`

type Config struct {
	Endpoint     string
	APIKey       string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
	MaxBodyChars int
}

// ChatSummarizer summarizes articles through a chat completions endpoint.
type ChatSummarizer struct {
	endpoint     string
	apiKey       string
	model        string
	systemPrompt string
	maxTokens    int
	temperature  float64
	maxBodyChars int
	httpClient   *http.Client
	enricher     Enricher
	logger       *slog.Logger
}

// New builds a summarizer. enricher may be nil.
func New(cfg Config, enricher Enricher, logger *slog.Logger) *ChatSummarizer {
	return &ChatSummarizer{
		endpoint:     cfg.Endpoint,
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		maxBodyChars: cfg.MaxBodyChars,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		enricher: enricher,
		logger:   logger.With("component", "summarizer"),
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *chatError   `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatError struct {
	Message string `json:"message"`
	Code    any    `json:"code"`
}

// Summarize never returns an error: upstream failures degrade to the title,
// and only a canceled caller yields StatusFailed.
func (s *ChatSummarizer) Summarize(ctx context.Context, article domain.RawArticle) Result {
	body := plainText(article.Body())
	if body == "" && s.enricher != nil && article.CanonicalURL() != "" {
		text, err := s.enricher.Enrich(ctx, article.CanonicalURL())
		if err != nil {
			s.logger.Debug("enrichment failed", "url", article.CanonicalURL(), "error", err)
		} else {
			body = text
		}
	}

	prompt := fmt.Sprintf(promptTemplate,
		article.Title,
		plainText(article.Description),
		truncate(body, s.maxBodyChars),
	)

	text, err := s.complete(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Failed(ctxErr)
		}
		s.logger.Warn("summarization failed, using title",
			"url", article.CanonicalURL(),
			"error", err,
		)
		return Degraded(article.Title, err)
	}

	if text == "" {
		return Degraded(article.Title, errors.New("empty completion"))
	}

	return OK(text)
}

func (s *ChatSummarizer) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: s.systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("llm error %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("llm error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", errors.New("no choices in response")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}
