// Package telegram is a minimal Telegram Bot API client used to push the
// daily schedule summary to the clinic's chat.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// Failure causes callers can tell apart. Anything else is wrapped with the
// API description when one is available.
var (
	ErrInvalidToken = errors.New("telegram: bot token rejected")
	ErrBadRequest   = errors.New("telegram: bad request")
)

// Client talks to the Bot API for a single bot and chat. The token and chat
// id are supplied by the environment; they are never logged.
type Client struct {
	httpClient *http.Client
	apiBase    string
	token      string
	chatID     string
}

func NewClient(token, chatID string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiBase:    defaultAPIBase,
		token:      token,
		chatID:     chatID,
	}
}

// SetAPIBase overrides the Bot API base URL. Used in tests.
func (c *Client) SetAPIBase(base string) {
	c.apiBase = base
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// SendMessage posts text to the configured chat.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: c.chatID, Text: text})
	if err != nil {
		return fmt.Errorf("telegram: encode message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("telegram: decode response (status %d): %w", resp.StatusCode, err)
	}
	if out.OK {
		return nil
	}

	switch out.ErrorCode {
	case http.StatusUnauthorized:
		return ErrInvalidToken
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, out.Description)
	default:
		return fmt.Errorf("telegram: api error %d: %s", out.ErrorCode, out.Description)
	}
}
