package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/moneymind/internal/metrics"
)

const (
	// DefaultTwilioBaseURL is Twilio's REST API root
	DefaultTwilioBaseURL = "https://api.twilio.com"
	// DefaultWhatsAppFrom is the Twilio WhatsApp sandbox number
	DefaultWhatsAppFrom = "whatsapp:+14155238886"

	whatsAppScheme = "whatsapp:"
)

// TwilioConfig configures the WhatsApp sender
type TwilioConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
	Timeout    time.Duration
}

// TwilioSender sends WhatsApp messages through the Twilio Messages API
type TwilioSender struct {
	client *resty.Client
	cfg    TwilioConfig
	log    zerolog.Logger
}

var _ Sender = (*TwilioSender)(nil)

type twilioMessage struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// NewTwilioSender creates a sender. Empty fields take the defaults above.
func NewTwilioSender(cfg TwilioConfig) *TwilioSender {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultTwilioBaseURL
	}
	if cfg.From == "" {
		cfg.From = DefaultWhatsAppFrom
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken)

	return &TwilioSender{
		client: client,
		cfg:    cfg,
		log:    log.With().Str("component", "twilio").Logger(),
	}
}

// Send delivers text to a phone number, with or without the whatsapp: prefix
func (s *TwilioSender) Send(ctx context.Context, recipient, text string) bool {
	err := s.send(ctx, recipient, text)
	metrics.RecordMessageSent("whatsapp", err == nil)
	if err != nil {
		s.log.Error().Err(err).Str("to", recipient).Msg("Error sending message")
		return false
	}
	return true
}

func (s *TwilioSender) send(ctx context.Context, recipient, text string) error {
	if s.cfg.AccountSID == "" || s.cfg.AuthToken == "" {
		return fmt.Errorf("twilio credentials are not configured")
	}

	body := Truncate(text)
	if body != text {
		s.log.Warn().Int("length", len([]rune(text))).Msg("Message truncated to 1600 characters")
	}

	to := recipient
	if !strings.HasPrefix(to, whatsAppScheme) {
		to = whatsAppScheme + to
	}

	var out twilioMessage
	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"From": s.cfg.From,
			"To":   to,
			"Body": body,
		}).
		SetResult(&out).
		SetError(&out).
		Post(fmt.Sprintf("/2010-04-01/Accounts/%s/Messages.json", s.cfg.AccountSID))
	if err != nil {
		return fmt.Errorf("twilio request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("twilio returned %d: %s", resp.StatusCode(), out.Message)
	}

	s.log.Info().Str("sid", out.SID).Str("to", to).Msg("Message sent")
	return nil
}
