// Package events publishes a summary of every conversation turn to NATS
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/moneymind/internal/metrics"
)

// DefaultPrefix namespaces subjects when none is configured
const DefaultPrefix = "moneymind."

// TurnEvent summarises one handled message. It carries no message text.
type TurnEvent struct {
	ID              uuid.UUID `json:"id"`
	UserID          string    `json:"user_id"`
	Intent          string    `json:"intent"`
	IntentSlug      string    `json:"intent_slug"`
	Agent           string    `json:"agent,omitempty"`
	PendingQuestion string    `json:"pending_question,omitempty"`
	RiskCategory    string    `json:"risk_category,omitempty"`
	SaveOK          bool      `json:"save_ok"`
	DurationMs      int64     `json:"duration_ms"`
	Timestamp       time.Time `json:"timestamp"`
}

// Publisher sends turn events somewhere
type Publisher interface {
	PublishTurn(ctx context.Context, ev TurnEvent) error
}

// Nop discards events
type Nop struct{}

func (Nop) PublishTurn(context.Context, TurnEvent) error { return nil }

// Config configures the NATS connection
type Config struct {
	URL    string
	Prefix string
	Name   string
}

// Bus publishes and subscribes to turn events over NATS
type Bus struct {
	nc     *nats.Conn
	prefix string
	log    zerolog.Logger
}

var _ Publisher = (*Bus)(nil)

// Connect dials NATS with infinite reconnects
func Connect(cfg Config) (*Bus, error) {
	logger := log.With().Str("component", "events").Logger()
	if cfg.Name == "" {
		cfg.Name = "moneymind"
	}

	nc, err := nats.Connect(
		cfg.URL,
		nats.Name(cfg.Name),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}

	logger.Info().Str("nats_url", cfg.URL).Str("prefix", cfg.Prefix).Msg("Event bus connected")
	return &Bus{nc: nc, prefix: cfg.Prefix, log: logger}, nil
}

// TurnSubject returns the subject a turn with the given intent slug goes to
func (b *Bus) TurnSubject(slug string) string {
	return fmt.Sprintf("%sturns.%s", b.prefix, slug)
}

// PublishTurn serialises ev and publishes it on the turn subject for its intent
func (b *Bus) PublishTurn(ctx context.Context, ev TurnEvent) error {
	err := b.publishTurn(ctx, ev)
	metrics.RecordEventPublished(err == nil)
	return err
}

func (b *Bus) publishTurn(ctx context.Context, ev TurnEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !b.nc.IsConnected() {
		return fmt.Errorf("event bus not connected")
	}

	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	slug := ev.IntentSlug
	if slug == "" {
		slug = "unclear"
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal turn event: %w", err)
	}

	subject := b.TurnSubject(slug)
	if err := b.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish turn event: %w", err)
	}

	b.log.Debug().Str("event_id", ev.ID.String()).Str("subject", subject).Msg("Published turn event")
	return nil
}

// SubscribeTurns calls handler for every turn event. Malformed payloads are
// logged and skipped.
func (b *Bus) SubscribeTurns(handler func(TurnEvent)) (*nats.Subscription, error) {
	sub, err := b.nc.Subscribe(b.TurnSubject("*"), func(msg *nats.Msg) {
		var ev TurnEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			b.log.Warn().Err(err).Str("subject", msg.Subject).Msg("Failed to unmarshal turn event")
			return
		}
		handler(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to turn events: %w", err)
	}
	return sub, nil
}

// Flush waits until the server has processed everything published so far
func (b *Bus) Flush() error {
	return b.nc.Flush()
}

// Close drains and closes the connection
func (b *Bus) Close() error {
	if b.nc == nil {
		return nil
	}
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
