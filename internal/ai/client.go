// Package ai talks to an OpenAI-compatible chat completions endpoint (Groq by
// default) to generate entry insights and translation suggestions.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/logger"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.1-8b-instant"

	chatCompletionsPath = "/chat/completions"
	maxResponseBytes    = 1 << 20

	suggestTemperature = 0.3
	suggestMaxTokens   = 128
)

// ErrNoAPIKey is returned when insights are requested without a configured key.
var ErrNoAPIKey = errors.New("ai: api key not configured")

// HTTPError is a non-2xx response from the completions endpoint.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("ai: http %d: %s", e.StatusCode, e.Body)
}

// Config configures the client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Client generates text through chat completions.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = logger.Component(l, "ai") }
}

// New creates a client, filling unset fields with defaults.
func New(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.5
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Transport: tr},
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// insightsPayload is the JSON object the model is asked to produce.
type insightsPayload struct {
	Synonyms         []string `json:"synonyms"`
	ExampleUsage     string   `json:"exampleUsage"`
	CulturalContext  string   `json:"culturalContext"`
	GrammaticalNotes string   `json:"grammaticalNotes"`
}

// GenerateInsights asks the model for synonyms, an example, cultural context
// and grammar notes. Any transport error, non-JSON reply, or reply that is
// not a JSON object is a failure; there are no partial results.
func (c *Client) GenerateInsights(ctx context.Context, e *domain.Entry) (domain.Enrichment, error) {
	if c.cfg.APIKey == "" {
		return domain.Enrichment{}, ErrNoAPIKey
	}

	content, err := c.complete(ctx, insightsPrompt(e), c.cfg.Temperature, c.cfg.MaxTokens)
	if err != nil {
		return domain.Enrichment{}, err
	}

	payload, err := parseInsights(content)
	if err != nil {
		return domain.Enrichment{}, err
	}
	return domain.Enrichment{
		Synonyms:         payload.Synonyms,
		ExampleUsage:     payload.ExampleUsage,
		CulturalContext:  payload.CulturalContext,
		GrammaticalNotes: payload.GrammaticalNotes,
	}, nil
}

func parseInsights(content string) (*insightsPayload, error) {
	dec := json.NewDecoder(strings.NewReader(content))
	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("ai: insights are not a JSON object: %w", err)
	}
	if raw == nil {
		return nil, errors.New("ai: insights are null")
	}

	var p insightsPayload
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return nil, fmt.Errorf("ai: malformed insights: %w", err)
	}
	if p.Synonyms == nil {
		p.Synonyms = []string{}
	}
	return &p, nil
}

// Suggestion is a proposed translation for a term.
type Suggestion struct {
	Translation     string `json:"translation"`
	Transliteration string `json:"transliteration"`
}

// SuggestTranslation proposes a translation and transliteration for term.
// It is a form helper: every failure yields an empty suggestion and is only
// logged.
func (c *Client) SuggestTranslation(ctx context.Context, term, dialect, category string, t domain.EntryType) Suggestion {
	if c.cfg.APIKey == "" || strings.TrimSpace(term) == "" {
		return Suggestion{}
	}
	if dialect == "" {
		dialect = "MSA"
	}
	if category == "" {
		category = "General"
	}
	if t == "" {
		t = domain.EntryTypeWord
	}

	prompt := fmt.Sprintf(`Translate and transliterate the Arabic term %q.
Context: Dialect: %s, Category: %s, Type: %s.
Output ONLY valid JSON with fields:
- translation: string (English meaning)
- transliteration: string (Latin characters)`, term, dialect, category, t)

	content, err := c.complete(ctx, prompt, suggestTemperature, suggestMaxTokens)
	if err != nil {
		c.logger.Warn("translation suggestion failed", "term", term, logger.Err(err))
		return Suggestion{}
	}
	var s Suggestion
	if err := json.Unmarshal([]byte(content), &s); err != nil {
		c.logger.Warn("translation suggestion was not JSON", "term", term, logger.Err(err))
		return Suggestion{}
	}
	return s
}

func insightsPrompt(e *domain.Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the Arabic term %q.\n", e.Term)
	b.WriteString("Context:\n")
	writeContext(&b, "Meaning", e.Translation)
	writeContext(&b, "Transliteration", e.Transliteration)
	writeContext(&b, "Dialect", e.Dialect)
	writeContext(&b, "Category", e.Category)
	writeContext(&b, "Type", string(e.Type))
	writeContext(&b, "Notes", e.Notes)
	if e.Translation != "" {
		fmt.Fprintf(&b, "\nThe user defined this term as %q. Treat that meaning as correct even if the term has other senses, and describe only that sense.\n", e.Translation)
	}
	b.WriteString(`
Provide a JSON response with the following fields. ALL content must be in ENGLISH, except for specific Arabic examples.
- synonyms: array of strings (English or transliterated Arabic)
- exampleUsage: string (Arabic sentence with English translation)
- culturalContext: string (explanation of cultural significance, usage, or nuance)
- grammaticalNotes: string (explanation of grammar, root, or conjugation)

Output ONLY valid JSON.`)
	return b.String()
}

func writeContext(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model               string         `json:"model"`
	Messages            []chatMessage  `json:"messages"`
	Temperature         float64        `json:"temperature"`
	MaxCompletionTokens int            `json:"max_completion_tokens"`
	ResponseFormat      map[string]any `json:"response_format"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete sends a single-message JSON-mode completion and returns the
// content of the first choice.
func (c *Client) complete(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error) {
	body := chatCompletionRequest{
		Model:               c.cfg.Model,
		Messages:            []chatMessage{{Role: "user", Content: prompt}},
		Temperature:         temperature,
		MaxCompletionTokens: maxTokens,
		ResponseFormat:      map[string]any{"type": "json_object"},
	}

	var resp chatCompletionResponse
	if err := c.doJSON(ctx, http.MethodPost, chatCompletionsPath, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ai: response has no choices")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("ai: empty completion")
	}
	return content, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out)
}
