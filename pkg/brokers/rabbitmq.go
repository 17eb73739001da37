package brokers

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	rabbitHeartbeat   = 10 * time.Second
	rabbitDialTimeout = 30 * time.Second
)

// RabbitMQ реализует MessageBroker поверх одного канала AMQP.
// Send безопасен для конкурентного вызова (sink экспорта и слушатель команд
// могут делить один брокер).
type RabbitMQ struct {
	config Config

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	pending *amqp.Delivery // ждет Ack
}

// NewRabbitMQ проверяет конфигурацию и подставляет значения по умолчанию.
// Соединение открывается в Connect.
func NewRabbitMQ(cfg Config) (*RabbitMQ, error) {
	if cfg.Queue == "" {
		return nil, fmt.Errorf("queue name is required for RabbitMQ")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 5672
		if cfg.UseTLS {
			cfg.Port = 5671
		}
	}
	if cfg.VHost == "" {
		cfg.VHost = "/"
	}
	return &RabbitMQ{config: cfg}, nil
}

func (r *RabbitMQ) uri() string {
	u := amqp.URI{
		Scheme:   "amqp",
		Host:     r.config.Host,
		Port:     r.config.Port,
		Username: r.config.User,
		Password: r.config.Password,
		Vhost:    r.config.VHost,
	}
	if r.config.UseTLS {
		u.Scheme = "amqps"
	}
	return u.String()
}

// Connect открывает соединение, канал и объявляет очередь.
// Параметры очереди должны совпадать с уже существующей, иначе брокер закроет канал.
func (r *RabbitMQ) Connect(ctx context.Context) error {
	timeout := rabbitDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(AppID)
	dialCfg := amqp.Config{
		Heartbeat:  rabbitHeartbeat,
		Properties: props,
		Dial:       amqp.DefaultDial(timeout),
	}
	if r.config.UseTLS {
		dialCfg.TLSClientConfig = &tls.Config{
			ServerName: r.config.Host,
			MinVersion: tls.VersionTLS12,
		}
	}

	conn, err := amqp.DialConfig(r.uri(), dialCfg)
	if err != nil {
		return fmt.Errorf("rabbitmq dial %s:%d: %w", r.config.Host, r.config.Port, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(r.config.Queue, r.config.Durable, r.config.AutoDelete, r.config.Exclusive, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("rabbitmq declare queue %s: %w", r.config.Queue, err)
	}

	r.mu.Lock()
	r.conn, r.channel, r.pending = conn, ch, nil
	r.mu.Unlock()
	return nil
}

// Close закрывает канал и соединение. Повторный вызов ничего не делает.
func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	conn, ch := r.conn, r.channel
	r.conn, r.channel, r.pending = nil, nil, nil
	r.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
	if conn != nil && !conn.IsClosed() {
		if err := conn.Close(); err != nil {
			return fmt.Errorf("rabbitmq close: %w", err)
		}
	}
	return nil
}

// Send публикует сообщение с persistent delivery.
// Пустой RoutingKey означает имя очереди (default exchange).
func (r *RabbitMQ) Send(ctx context.Context, message []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channel == nil {
		return ErrNotConnected
	}

	key := r.config.RoutingKey
	if key == "" {
		key = r.config.Queue
	}
	err := r.channel.PublishWithContext(ctx, r.config.Exchange, key, false, false, amqp.Publishing{
		ContentType:  ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		AppId:        AppID,
		Timestamp:    time.Now(),
		Body:         message,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish to %s: %w", key, err)
	}
	return nil
}

// Receive забирает одно сообщение через basic.get без auto-ack.
// Пустая очередь дает ErrNoMessage сразу, интервал опроса задает вызывающий.
func (r *RabbitMQ) Receive(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channel == nil {
		return nil, ErrNotConnected
	}

	d, ok, err := r.channel.Get(r.config.Queue, false)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq get from %s: %w", r.config.Queue, err)
	}
	if !ok {
		return nil, ErrNoMessage
	}
	r.pending = &d
	return d.Body, nil
}

// Ack подтверждает сообщение, полученное последним Receive.
func (r *RabbitMQ) Ack(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.channel == nil {
		return ErrNotConnected
	}
	if r.pending == nil {
		return ErrNothingToAck
	}
	d := r.pending
	r.pending = nil
	if err := d.Ack(false); err != nil {
		return fmt.Errorf("rabbitmq ack %d: %w", d.DeliveryTag, err)
	}
	return nil
}

// Ping сообщает, живы ли соединение и канал.
func (r *RabbitMQ) Ping(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil || r.conn.IsClosed() || r.channel == nil || r.channel.IsClosed() {
		return ErrNotConnected
	}
	return nil
}

// GetBrokerType возвращает "rabbitmq"
func (r *RabbitMQ) GetBrokerType() string {
	return "rabbitmq"
}
