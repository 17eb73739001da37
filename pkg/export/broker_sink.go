package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ruslano69/tdtp-viewer/pkg/brokers"
)

// Envelope is the broker message carrying an artifact. Body is base64 in JSON.
type Envelope struct {
	ID          string    `json:"id"`
	Dataset     string    `json:"dataset"`
	Format      string    `json:"format"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	Checksum    string    `json:"checksum"`
	Compressed  bool      `json:"compressed"`
	Rows        int       `json:"rows"`
	Columns     []string  `json:"columns"`
	CreatedAt   time.Time `json:"created_at"`
	Body        []byte    `json:"body"`
}

// NewEnvelope wraps a for transport.
func NewEnvelope(a *Artifact) Envelope {
	return Envelope{
		ID:          a.ID,
		Dataset:     a.Dataset,
		Format:      a.Format,
		FileName:    a.FileName,
		ContentType: a.ContentType,
		Checksum:    a.Checksum,
		Compressed:  a.Compressed,
		Rows:        a.Rows,
		Columns:     a.Columns,
		CreatedAt:   a.CreatedAt,
		Body:        a.Body,
	}
}

// BrokerSink publishes artifacts to RabbitMQ or Kafka.
type BrokerSink struct {
	broker brokers.MessageBroker
}

// NewBrokerSink wraps an already connected broker.
func NewBrokerSink(b brokers.MessageBroker) *BrokerSink {
	return &BrokerSink{broker: b}
}

// Name implements Sink.
func (s *BrokerSink) Name() string { return "broker:" + s.broker.GetBrokerType() }

// Put implements Sink.
func (s *BrokerSink) Put(ctx context.Context, a *Artifact) error {
	msg, err := json.Marshal(NewEnvelope(a))
	if err != nil {
		return fmt.Errorf("broker sink: marshal envelope: %w", err)
	}
	if err := s.broker.Send(ctx, msg); err != nil {
		return fmt.Errorf("broker sink: %w", err)
	}
	return nil
}
