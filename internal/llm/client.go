// Package llm invokes the remote chat-completions endpoint with bounded
// retries and a typed fallback once retries are exhausted. Callers always
// receive a renderable Result, never a remote error.
package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/nanban-ai/nanban/internal/catalog"
	"github.com/nanban-ai/nanban/internal/conversation"
)

// Sampling parameters, fixed per call: expressive but non-erratic output,
// a low output ceiling to bound latency and cost, and penalties that keep
// the persona from repeating itself.
const (
	temperature      = 0.8
	maxOutputTokens  = 500
	presencePenalty  = 0.6
	frequencyPenalty = 0.3
)

// maxErrorBodySize caps how much of an error response body is read.
const maxErrorBodySize = 1 * 1024 * 1024

// Config configures the generation client.
type Config struct {
	Endpoint string        // API base URL, e.g. https://api.openai.com/v1
	APIKey   string
	Model    string
	Timeout  time.Duration // per-attempt HTTP timeout

	// MaxAttempts bounds the retry loop; RetryDelay is the linear backoff
	// unit (attempt n waits n × RetryDelay before retrying).
	MaxAttempts int
	RetryDelay  time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint:    "https://api.openai.com/v1",
		Model:       "gpt-4o-mini",
		Timeout:     30 * time.Second,
		MaxAttempts: 3,
		RetryDelay:  500 * time.Millisecond,
	}
}

// Result is the terminal outcome of a generation call. When Fallback is
// true, Text holds the persona-appropriate apology instead of model output.
type Result struct {
	Text     string
	Fallback bool
}

// Client talks to the remote generation endpoint.
type Client struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger
}

// NewClient creates a generation client. Missing config fields fall back
// to DefaultConfig values.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	def := DefaultConfig()
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "llm").Logger(),
	}
}

// GenerateText produces a reply for a plain text message.
func (c *Client) GenerateText(ctx context.Context, instruction string, history []conversation.Turn, userMessage string, persona catalog.Persona) Result {
	messages := c.buildMessages(instruction, history, userMessage)
	return c.generate(ctx, messages, persona)
}

// GenerateFromImage produces a reply for a message with an attached image.
// History is intentionally omitted on the vision path; the image plus the
// caption is the whole context.
func (c *Client) GenerateFromImage(ctx context.Context, instruction, userMessage string, imageData []byte, mimeType string, persona catalog.Persona) Result {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(imageData))
	messages := []chatMessage{
		{Role: "system", Content: instruction},
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: userMessage},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		}},
	}
	return c.generate(ctx, messages, persona)
}

func (c *Client) buildMessages(instruction string, history []conversation.Turn, userMessage string) []chatMessage {
	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: instruction})
	for _, turn := range history {
		messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Content})
	}
	return append(messages, chatMessage{Role: "user", Content: userMessage})
}

// generate runs the bounded retry loop. Every failure — transient or not —
// is retried until the attempt budget is spent, then converted into the
// fallback reply. Nothing propagates to the caller.
func (c *Client) generate(ctx context.Context, messages []chatMessage, persona catalog.Persona) Result {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		text, err := c.chat(ctx, messages)
		if err == nil {
			return Result{Text: text}
		}
		lastErr = err
		c.logger.Warn().Err(err).Int("attempt", attempt).Msg("generation attempt failed")

		if attempt < c.cfg.MaxAttempts {
			select {
			case <-time.After(time.Duration(attempt) * c.cfg.RetryDelay):
			case <-ctx.Done():
				// Even cancellation ends in the fallback branch; the
				// caller must always have something to render.
				c.logger.Warn().Err(ctx.Err()).Msg("generation cancelled, serving fallback")
				return Result{Text: FallbackText(persona), Fallback: true}
			}
		}
	}

	c.logger.Error().Err(lastErr).Int("attempts", c.cfg.MaxAttempts).Msg("generation exhausted retries, serving fallback")
	return Result{Text: FallbackText(persona), Fallback: true}
}

// chat performs one chat-completions call.
func (c *Client) chat(ctx context.Context, messages []chatMessage) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("generation API key not configured")
	}

	body, err := json.Marshal(chatRequest{
		Model:            c.cfg.Model,
		Messages:         messages,
		MaxTokens:        maxOutputTokens,
		Temperature:      temperature,
		PresencePenalty:  presencePenalty,
		FrequencyPenalty: frequencyPenalty,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return "", fmt.Errorf("generation error (status %d): %s", resp.StatusCode, string(errBody))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return parsed.Choices[0].Message.Content, nil
}

// FallbackText returns the deterministic reply substituted when generation
// is unavailable. JALIANA gets the lighter apology-with-humour; everyone
// else gets the neutral one.
func FallbackText(persona catalog.Persona) string {
	if persona == catalog.PersonaJaliana {
		return "மச்சி, சொரி டா... கொஞ்சம் technical issue. மறுபடியும் try பண்ணு! 😅"
	}
	return "மன்னிக்கவும், technical issue உள்ளது. மீண்டும் முயற்சிக்கவும்."
}
