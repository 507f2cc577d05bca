package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/karthikrv/districtwatch/app/monitor"
)

const maxSendRetries = 2

// Client talks to the Telegram Bot API. A client built without a token is
// disabled: every send is a logged no-op so the monitor core keeps running
// without a configured channel.
type Client struct {
	httpClient *http.Client
	baseURL    string
	chatID     string
	enabled    bool
}

type Update struct {
	UpdateID int64 `json:"update_id"`
	Message  struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// NewClient builds a Telegram client. baseURL is the API root including
// the bot token ("https://api.telegram.org/bot<token>"); empty disables it.
func NewClient(httpClient *http.Client, baseURL, chatID string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		chatID:     chatID,
		enabled:    baseURL != "" && chatID != "",
	}
}

func (c *Client) Enabled() bool {
	return c.enabled
}

// SendMessage delivers one Markdown message, retrying transient failures
// with bounded exponential backoff before giving up.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	if !c.enabled {
		slog.Debug("Notifier disabled, dropping message")
		return nil
	}

	payload := map[string]any{
		"chat_id":                  c.chatID,
		"text":                     text,
		"parse_mode":               "Markdown",
		"disable_web_page_preview": true,
	}

	operation := func() error {
		return c.post(ctx, "sendMessage", payload)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxSendRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

func (c *Client) SendBookingAlert(ctx context.Context, alert monitor.BookingAlert) error {
	if len(alert.Theatres) == 0 {
		return nil
	}
	return c.SendMessage(ctx, FormatBookingAlert(alert))
}

// GetUpdates long-polls the bot API for incoming commands.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	if !c.enabled {
		return nil, nil
	}

	payload := map[string]any{
		"offset":  offset,
		"timeout": int(timeout.Seconds()),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/getUpdates", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to poll updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("telegram API error: %d %s", resp.StatusCode, string(data))
	}

	var parsed struct {
		OK     bool     `json:"ok"`
		Result []Update `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode updates: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("telegram API returned not ok")
	}

	return parsed.Result, nil
}

func (c *Client) post(ctx context.Context, method string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to encode payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("telegram API error: %d %s", resp.StatusCode, string(data))
		// Client-side errors won't heal on retry
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	return nil
}
