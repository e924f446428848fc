package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tbourn/go-policy-admin/internal/config"
)

type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATS publishes events as JSON on <prefix>.<type>. The event id travels in
// the Nats-Msg-Id header so JetStream streams can deduplicate.
type NATS struct {
	conn   msgPublisher
	nc     *nats.Conn
	prefix string
}

// Connect dials the NATS server at url. Reconnects are handled by the client.
func Connect(url, prefix string) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("policy-admin"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATS{conn: nc, nc: nc, prefix: strings.TrimSuffix(prefix, ".")}, nil
}

func (p *NATS) subject(typ string) string {
	if p.prefix == "" {
		return typ
	}
	return p.prefix + "." + typ
}

// Publish sends e; ctx bounds nothing beyond an early cancellation check
// because core NATS publishes are buffered.
func (p *NATS) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := nats.NewMsg(p.subject(e.Type))
	msg.Header.Set(nats.MsgIdHdr, e.ID)
	msg.Data = data
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", msg.Subject, err)
	}
	return nil
}

// Close drains buffered messages and closes the connection.
func (p *NATS) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}

// NewPublisher returns a NATS publisher when a URL is configured and a
// LogPublisher otherwise. The close func is always safe to call.
func NewPublisher(cfg config.EventsConfig) (Publisher, func(), error) {
	if cfg.NATSURL == "" {
		return LogPublisher{}, func() {}, nil
	}
	p, err := Connect(cfg.NATSURL, cfg.SubjectPrefix)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}
