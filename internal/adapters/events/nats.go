// Package events publishes domain events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"thyrd_spaces/internal/adapters/observability"
)

// Envelope is the message body on every subject.
type Envelope struct {
	Subject string          `json:"subject"`
	At      time.Time       `json:"at"`
	Data    json.RawMessage `json:"data"`
}

// conn is the slice of *nats.Conn we use.
type conn interface {
	Publish(subj string, data []byte) error
}

type Publisher struct {
	nc  conn
	now func() time.Time
}

// Connect dials url with reconnect handling logged through zerolog.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("thyrd-spaces"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info().Msg("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}
	return nc, nil
}

func NewPublisher(nc conn) *Publisher {
	return &Publisher{nc: nc, now: time.Now}
}

func (p *Publisher) Publish(ctx context.Context, subject string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	body, err := json.Marshal(Envelope{Subject: subject, At: p.now().UTC(), Data: data})
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	err = p.nc.Publish(subject, body)
	observability.ObserveEvent(subject, err)
	return err
}

// Noop drops every event. Used when NATS_URL is unset.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
