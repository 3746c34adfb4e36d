// Package telegram implements the Telegram Bot API transport for outbox
// delivery.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/mengedapp/menged/internal/notify"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	defaultTimeout = 10 * time.Second

	// Telegram allows roughly 30 bot messages per second globally.
	defaultRateLimit = 25
)

// Config holds telegram client configuration. An empty BotToken disables
// the client: sends become logged no-ops so the rest of the pipeline can
// run without live credentials.
type Config struct {
	BotToken  string
	BaseURL   string
	RateLimit float64
	Timeout   time.Duration
}

// Client sends messages through the Telegram Bot API. It performs exactly
// one network call per Send and never retries internally; the outbox
// dispatcher owns the retry policy.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Used by tests to
// count and intercept network calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a telegram client.
func NewClient(config Config, opts ...Option) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.RateLimit <= 0 {
		config.RateLimit = defaultRateLimit
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}

	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
	for _, opt := range opts {
		opt(c)
	}

	if !c.Enabled() {
		slog.Warn("telegram bot token not configured, messages will be logged only")
	} else {
		slog.Info("telegram client configured", "rate_limit", config.RateLimit)
	}

	return c
}

// Enabled reports whether the client has credentials to reach Telegram.
func (c *Client) Enabled() bool {
	return c.config.BotToken != ""
}

type sendMessageRequest struct {
	ChatID      int64        `json:"chat_id"`
	Text        string       `json:"text"`
	ParseMode   string       `json:"parse_mode,omitempty"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type inlineButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers one rendered message to one chat. Timeouts, network errors
// and non-OK API responses all surface as a single error.
func (c *Client) Send(ctx context.Context, chatID int64, msg notify.RenderedMessage) error {
	if !c.Enabled() {
		slog.Info("telegram disabled, message not sent", "chat_id", chatID, "text", msg.Text)
		return nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit wait: %w", err)
	}

	req := sendMessageRequest{
		ChatID: chatID,
		Text:   msg.Text,
	}
	if msg.Mode == notify.ModeMarkdown {
		req.ParseMode = "Markdown"
	}
	if len(msg.Buttons) > 0 {
		row := make([]inlineButton, 0, len(msg.Buttons))
		for _, b := range msg.Buttons {
			row = append(row, inlineButton{Text: b.Label, URL: b.URL})
		}
		req.ReplyMarkup = &replyMarkup{InlineKeyboard: [][]inlineButton{row}}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("telegram marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.config.BaseURL, c.config.BotToken)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	var api apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&api); err != nil {
		api = apiResponse{}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !api.OK {
		desc := api.Description
		if desc == "" {
			desc = "no description"
		}
		return fmt.Errorf("telegram send to %d: status %d: %s", chatID, resp.StatusCode, desc)
	}

	slog.Debug("telegram message sent", "chat_id", chatID)
	return nil
}
