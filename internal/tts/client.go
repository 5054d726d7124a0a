package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"podstudio/internal/retry"
	"podstudio/internal/services"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1/audio/speech"
	defaultModel       = "gpt-4o-mini-tts"
	defaultVoice       = "alloy"
	defaultHTTPTimeout = 60 * time.Second
	responseFormatWAV  = "wav"
)

// Config captures the runtime settings for the speech endpoint.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	DefaultVoice   string
	TimeoutSeconds int
}

// Client talks to an OpenAI-compatible /audio/speech endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	policy     retry.Policy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// NewClient constructs a speech client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			DefaultVoice:   strings.TrimSpace(cfg.DefaultVoice),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		policy:     retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	if client.cfg.DefaultVoice == "" {
		client.cfg.DefaultVoice = defaultVoice
	}
	return client
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

// Synthesize requests a WAV rendition of text.
func (c *Client) Synthesize(ctx context.Context, text string, opts Options) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, "tts", "synthesize", "text required", nil)
	}
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "tts", "synthesize", "api key required", nil)
	}
	voice := strings.TrimSpace(opts.Voice)
	if voice == "" {
		voice = c.cfg.DefaultVoice
	}
	encoded, err := json.Marshal(speechRequest{
		Model:          c.cfg.Model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: responseFormatWAV,
	})
	if err != nil {
		return nil, fmt.Errorf("tts request: encode body: %w", err)
	}

	var result *Result
	err = c.policy.Do(ctx, "tts synthesize", func(ctx context.Context) error {
		res, err := c.sendOnce(ctx, encoded)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrExternal, "tts", "synthesize", "speech request failed", err)
	}
	return result, nil
}

func (c *Client) sendOnce(ctx context.Context, body []byte) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tts request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tts request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, retry.NewStatusError("tts", resp, payload)
	}
	if len(payload) == 0 {
		return nil, retry.Retryable(errors.New("tts request: empty audio body"))
	}
	return &Result{Audio: payload, ContentType: resp.Header.Get("Content-Type")}, nil
}
