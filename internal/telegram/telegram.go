package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/dghubble/sling"
)

const (
	defaultBaseURL = "https://api.telegram.org/"
	timeout        = 10 * time.Second
)

// Client represents a Telegram Bot API client
type Client struct {
	botToken string
	chatID   string
	base     *sling.Sling
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL points the client at another Bot API server.
func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = u }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = c }
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, opts ...Option) (*Client, error) {
	if botToken == "" {
		return nil, errors.New("bot token is required")
	}
	if chatID == "" {
		return nil, errors.New("chat ID is required")
	}

	o := clientOptions{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Client{
		botToken: botToken,
		chatID:   chatID,
		base:     sling.New().Client(o.httpClient).Base(o.baseURL),
	}, nil
}

// apiResponse is the envelope of every Bot API reply.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// SendMessage sends an HTML-formatted text message to the configured chat
func (c *Client) SendMessage(ctx context.Context, text string) error {
	if text == "" {
		return errors.New("message text is required")
	}

	req, err := c.base.New().
		Post(c.method("sendMessage")).
		BodyJSON(sendMessageRequest{
			ChatID:                c.chatID,
			Text:                  text,
			ParseMode:             "HTML",
			DisableWebPagePreview: true,
		}).
		Request()
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(ctx, req)
}

// SendDocument uploads data as a file attachment with an optional caption.
func (c *Client) SendDocument(ctx context.Context, filename string, data []byte, caption string) error {
	if filename == "" {
		return errors.New("filename is required")
	}
	if len(data) == 0 {
		return errors.New("document data is required")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("chat_id", c.chatID); err != nil {
		return fmt.Errorf("writing chat_id: %w", err)
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return fmt.Errorf("writing caption: %w", err)
		}
		if err := w.WriteField("parse_mode", "HTML"); err != nil {
			return fmt.Errorf("writing parse_mode: %w", err)
		}
	}
	part, err := w.CreateFormFile("document", filename)
	if err != nil {
		return fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("writing document: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := c.base.New().
		Post(c.method("sendDocument")).
		Set("Content-Type", w.FormDataContentType()).
		Body(&body).
		Request()
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	return c.do(ctx, req)
}

func (c *Client) method(name string) string {
	return "bot" + c.botToken + "/" + name
}

func (c *Client) do(ctx context.Context, req *http.Request) error {
	var ok, failed apiResponse
	resp, err := c.base.Do(req.WithContext(ctx), &ok, &failed)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("telegram API error (status %d): %w", resp.StatusCode, err)
		}
		return fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if failed.Description != "" {
			return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode, failed.Description)
		}
		return fmt.Errorf("telegram API error (status %d)", resp.StatusCode)
	}
	if !ok.OK {
		return fmt.Errorf("telegram API error: %s", ok.Description)
	}
	return nil
}
