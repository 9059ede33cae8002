package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/clinigo/platform/pkg/logging"
)

// SMSSender sends SMS messages to patients.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// WhatsAppSender sends WhatsApp messages to patients.
type WhatsAppSender interface {
	SendWhatsApp(ctx context.Context, to, body string) error
}

// MessagingConfig holds the HTTP messaging gateway settings.
type MessagingConfig struct {
	BaseURL string
	APIKey  string
}

// MessagingClient talks to the SMS/WhatsApp gateway over HTTP. The same
// provider endpoint carries both channels, selected by the channel field.
type MessagingClient struct {
	cfg    MessagingConfig
	http   *http.Client
	logger *logging.Logger
}

// NewMessagingClient creates a messaging client, or nil when unconfigured.
func NewMessagingClient(cfg MessagingConfig, logger *logging.Logger) *MessagingClient {
	if cfg.BaseURL == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &MessagingClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

type messagePayload struct {
	Channel string `json:"channel"`
	To      string `json:"to"`
	Body    string `json:"body"`
}

// SendSMS sends an SMS through the gateway.
func (c *MessagingClient) SendSMS(ctx context.Context, to, body string) error {
	return c.send(ctx, "sms", to, body)
}

// SendWhatsApp sends a WhatsApp message through the gateway.
func (c *MessagingClient) SendWhatsApp(ctx context.Context, to, body string) error {
	return c.send(ctx, "whatsapp", to, body)
}

func (c *MessagingClient) send(ctx context.Context, channel, to, body string) error {
	if c == nil {
		return fmt.Errorf("notify: messaging client not configured")
	}

	payload, err := json.Marshal(messagePayload{Channel: channel, To: to, Body: body})
	if err != nil {
		return fmt.Errorf("notify: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: build message request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send %s: %w", channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.logger.Error("messaging gateway rejected message", "channel", channel, "status", resp.StatusCode, "to", to)
		return fmt.Errorf("notify: messaging gateway returned status %d", resp.StatusCode)
	}

	c.logger.Info("message sent", "channel", channel, "to", to)
	return nil
}

// StubMessagingSender logs instead of sending, for development and tests.
type StubMessagingSender struct {
	logger *logging.Logger
}

func NewStubMessagingSender(logger *logging.Logger) *StubMessagingSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubMessagingSender{logger: logger}
}

func (s *StubMessagingSender) SendSMS(ctx context.Context, to, body string) error {
	s.logger.Info("stub messaging: would send sms", "to", to)
	return nil
}

func (s *StubMessagingSender) SendWhatsApp(ctx context.Context, to, body string) error {
	s.logger.Info("stub messaging: would send whatsapp", "to", to)
	return nil
}
