package brokers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// DefaultConsumerGroup используется, если consumer_group не задан
const DefaultConsumerGroup = "tdtpview-consumer-group"

// Kafka реализует MessageBroker: один writer на topic и reader в consumer group.
// Offset коммитится только в Ack.
type Kafka struct {
	config Config

	mu      sync.Mutex
	writer  *kafka.Writer
	reader  *kafka.Reader
	pending *kafka.Message
}

// NewKafka проверяет topic и список brokers. Соединения создаются в Connect.
func NewKafka(cfg Config) (*Kafka, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic name is required for Kafka")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required for Kafka")
	}
	if cfg.ConsumerGroup == "" {
		cfg.ConsumerGroup = DefaultConsumerGroup
	}
	return &Kafka{config: cfg}, nil
}

// Connect создает writer и reader и проверяет, что topic существует.
func (k *Kafka) Connect(ctx context.Context) error {
	if err := k.Ping(ctx); err != nil {
		return err
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(k.config.Brokers...),
		Topic:        k.config.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Zstd,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
	}
	// новые consumer group читают только сообщения, пришедшие после старта
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        k.config.Brokers,
		GroupID:        k.config.ConsumerGroup,
		Topic:          k.config.Topic,
		MaxBytes:       10 << 20,
		StartOffset:    kafka.LastOffset,
		MaxWait:        time.Second,
		ReadBackoffMin: 100 * time.Millisecond,
		ReadBackoffMax: time.Second,
	})

	k.mu.Lock()
	k.writer, k.reader, k.pending = w, r, nil
	k.mu.Unlock()
	return nil
}

// Close закрывает writer и reader
func (k *Kafka) Close() error {
	k.mu.Lock()
	w, r := k.writer, k.reader
	k.writer, k.reader, k.pending = nil, nil, nil
	k.mu.Unlock()

	var errs []error
	if w != nil {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka writer: %w", err))
		}
	}
	if r != nil {
		if err := r.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka reader: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Send пишет сообщение синхронно. Ключ - uuid, распределение по партициям через Hash.
func (k *Kafka) Send(ctx context.Context, message []byte) error {
	k.mu.Lock()
	w := k.writer
	k.mu.Unlock()
	if w == nil {
		return ErrNotConnected
	}

	err := w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(uuid.NewString()),
		Value: message,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte(ContentType)},
			{Key: "producer", Value: []byte(AppID)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka write to %s: %w", k.config.Topic, err)
	}
	return nil
}

// Receive блокируется до следующего сообщения или отмены ctx.
func (k *Kafka) Receive(ctx context.Context) ([]byte, error) {
	k.mu.Lock()
	r := k.reader
	k.mu.Unlock()
	if r == nil {
		return nil, ErrNotConnected
	}

	msg, err := r.FetchMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("kafka fetch from %s: %w", k.config.Topic, err)
	}

	k.mu.Lock()
	k.pending = &msg
	k.mu.Unlock()
	return msg.Value, nil
}

// Ack коммитит offset сообщения, полученного последним Receive.
func (k *Kafka) Ack(ctx context.Context) error {
	k.mu.Lock()
	r, msg := k.reader, k.pending
	k.pending = nil
	k.mu.Unlock()

	if msg == nil {
		return ErrNothingToAck
	}
	if r == nil {
		return ErrNotConnected
	}
	if err := r.CommitMessages(ctx, *msg); err != nil {
		return fmt.Errorf("kafka commit %d/%d: %w", msg.Partition, msg.Offset, err)
	}
	return nil
}

// Ping соединяется с первым broker и читает партиции topic.
func (k *Kafka) Ping(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", k.config.Brokers[0])
	if err != nil {
		return fmt.Errorf("kafka dial %s: %w", k.config.Brokers[0], err)
	}
	defer conn.Close()

	parts, err := conn.ReadPartitions(k.config.Topic)
	if err != nil {
		return fmt.Errorf("kafka partitions of %s: %w", k.config.Topic, err)
	}
	if len(parts) == 0 {
		return fmt.Errorf("kafka topic %s has no partitions", k.config.Topic)
	}
	return nil
}

// GetBrokerType возвращает "kafka"
func (k *Kafka) GetBrokerType() string {
	return "kafka"
}
