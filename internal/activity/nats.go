package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Subject carries all activity events. Consumers subscribe here (see
// cmd/indexer).
const Subject = "activity.log"

// NATSPublisher publishes activity events to a NATS subject. Publishes are
// buffered client-side and flushed by the nats client; nothing here blocks
// on broker acknowledgement.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATS connects to the NATS server at url.
func NewNATS(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("chatline-activity"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

// Publish sends one event. Errors are reported but the caller is expected to
// drop them after logging.
func (p *NATSPublisher) Publish(_ context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal activity event: %w", err)
	}
	if err := p.conn.Publish(Subject, data); err != nil {
		return fmt.Errorf("publish activity event: %w", err)
	}
	return nil
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	_ = p.conn.Drain()
}
