package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSPublisher forwards bus events to NATS subjects named prefix+event type.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// ConnectNATS dials the server with reconnects enabled.
func ConnectNATS(url, name string, logger *zerolog.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject returns the NATS subject for an event type.
func (p *NATSPublisher) Subject(eventType string) string {
	return p.prefix + eventType
}

// Publish sends the event and waits for the server to acknowledge the flush.
func (p *NATSPublisher) Publish(ctx context.Context, event *Event) error {
	if p.conn == nil {
		return errors.New("nats connection is nil")
	}

	msg := nats.NewMsg(p.Subject(event.Type))
	msg.Data = event.Payload
	msg.Header.Set(nats.MsgIdHdr, event.ID)
	msg.Header.Set("Event-Type", event.Type)
	msg.Header.Set("Event-Created-At", event.CreatedAt.UTC().Format(time.RFC3339Nano))

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", msg.Subject, err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}
