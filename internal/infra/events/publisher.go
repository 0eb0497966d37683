// Package events publishes collector events to NATS subjects.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"card-quiz/internal/app"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const (
	EventRunAccepted           = "run.accepted"
	EventLeaderboardRecomputed = "leaderboard.recomputed"
)

type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		SubjectPrefix: "quiz",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// Publisher implements app.EventPublisher on core NATS.
type Publisher struct {
	nc     *nats.Conn
	pub    msgPublisher
	prefix string
	now    func() time.Time
}

var _ app.EventPublisher = (*Publisher)(nil)

func Connect(cfg Config) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("card-quiz-collector"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	p := newPublisher(nc, cfg.SubjectPrefix)
	p.nc = nc
	return p, nil
}

func newPublisher(pub msgPublisher, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultConfig().SubjectPrefix
	}
	return &Publisher{pub: pub, prefix: prefix, now: time.Now}
}

func (p *Publisher) PublishRunAccepted(ctx context.Context, ev app.RunAccepted) error {
	return p.publish(ctx, EventRunAccepted, ev)
}

func (p *Publisher) PublishLeaderboardRecomputed(ctx context.Context, ev app.LeaderboardRecomputed) error {
	return p.publish(ctx, EventLeaderboardRecomputed, ev)
}

func (p *Publisher) publish(ctx context.Context, eventType string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	eventID := uuid.NewString()
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	data, err := json.Marshal(map[string]any{
		"eventId":   eventID,
		"eventType": eventType,
		"timestamp": p.now().UTC(),
		"payload":   json.RawMessage(body),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := p.prefix + "." + eventType
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{eventType},
			"Event-ID":   []string{eventID},
		},
	}
	if err := p.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	log.Debug().Str("subject", subject).Str("event_id", eventID).Msg("event published")
	return nil
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
