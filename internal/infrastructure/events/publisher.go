package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Subjects published by the listing and favorite services.
const (
	SubjectListingCreated       = "listings.created"
	SubjectListingUpdated       = "listings.updated"
	SubjectListingStatusChanged = "listings.status_changed"
	SubjectListingDeleted       = "listings.deleted"
	SubjectFavoriteAdded        = "favorites.added"
	SubjectFavoriteRemoved      = "favorites.removed"
)

// Publisher emits domain events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
}

// Envelope wraps every published payload.
type Envelope struct {
	Subject    string      `json:"subject"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// NATSPublisher publishes JSON envelopes on a NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to url (e.g. nats://localhost:4222).
func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("estate-backend"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	data, err := json.Marshal(Envelope{Subject: subject, OccurredAt: time.Now().UTC(), Data: payload})
	if err != nil {
		return err
	}
	return p.conn.Publish(subject, data)
}

// Ping round-trips to the server.
func (p *NATSPublisher) Ping(ctx context.Context) error {
	if !p.conn.IsConnected() {
		return nats.ErrConnectionClosed
	}
	return p.conn.FlushWithContext(ctx)
}

// Close drains pending messages before closing the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Emit publishes through p when it is set. Failures are logged, not returned.
func Emit(ctx context.Context, p Publisher, subject string, payload interface{}) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, subject, payload); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("event publish failed")
	}
}
