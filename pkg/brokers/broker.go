package brokers

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNoMessage - очередь пуста, можно повторить Receive
	ErrNoMessage = errors.New("no messages available")
	// ErrNotConnected - Connect не вызывался или соединение закрыто
	ErrNotConnected = errors.New("broker not connected")
	// ErrNothingToAck - Ack без предшествующего Receive
	ErrNothingToAck = errors.New("no message to acknowledge")
)

// AppID - идентификатор отправителя в заголовках сообщений
const AppID = "tdtpview"

// ContentType - тип содержимого сообщений (JSON конверты экспорта и команды)
const ContentType = "application/json"

// MessageBroker представляет универсальный интерфейс для работы с очередями сообщений
// Поддерживает RabbitMQ и Apache Kafka
type MessageBroker interface {
	// Connect устанавливает соединение с брокером
	Connect(ctx context.Context) error

	// Close закрывает соединение с брокером
	Close() error

	// Send отправляет сообщение в очередь
	// message - тело сообщения (JSON)
	Send(ctx context.Context, message []byte) error

	// Receive получает сообщение из очереди
	// Блокирующий вызов - ждет пока не придет сообщение или не истечет timeout
	Receive(ctx context.Context) ([]byte, error)

	// Ack подтверждает последнее полученное сообщение
	// (RabbitMQ - basic.ack, Kafka - commit offset)
	Ack(ctx context.Context) error

	// Ping проверяет доступность брокера
	Ping(ctx context.Context) error

	// GetBrokerType возвращает тип брокера (rabbitmq, kafka)
	GetBrokerType() string
}

// Config содержит параметры подключения к message broker
type Config struct {
	Type       string `yaml:"type"`        // rabbitmq, kafka
	Host       string `yaml:"host"`        // Хост (для RabbitMQ)
	Port       int    `yaml:"port"`        // Порт (для RabbitMQ)
	User       string `yaml:"user"`        // Пользователь (для RabbitMQ)
	Password   string `yaml:"password"`    // Пароль (для RabbitMQ)
	Queue      string `yaml:"queue"`       // Имя очереди (для RabbitMQ)
	VHost      string `yaml:"vhost"`       // Virtual host (для RabbitMQ, по умолчанию "/")
	UseTLS     bool   `yaml:"tls"`         // Использовать TLS/SSL (amqps://) для RabbitMQ
	Exchange   string `yaml:"exchange"`    // RabbitMQ exchange (пустая строка = default exchange)
	RoutingKey string `yaml:"routing_key"` // RabbitMQ routing key (если пустой, используется имя очереди)

	// RabbitMQ параметры очереди (ВАЖНО: должны совпадать с существующей очередью!)
	Durable    bool `yaml:"durable"`     // Очередь переживает перезапуск RabbitMQ
	AutoDelete bool `yaml:"auto_delete"` // Очередь удаляется когда нет consumer'ов
	Exclusive  bool `yaml:"exclusive"`   // Очередь доступна только одному соединению

	// Kafka специфичные параметры
	Brokers       []string `yaml:"brokers"`        // Список Kafka brokers (например: ["localhost:9092"])
	Topic         string   `yaml:"topic"`          // Имя Kafka topic
	ConsumerGroup string   `yaml:"consumer_group"` // Consumer group ID (по умолчанию "tdtpview-consumer-group")
}

// New создает новый MessageBroker на основе конфигурации
func New(cfg Config) (MessageBroker, error) {
	switch cfg.Type {
	case "rabbitmq":
		return NewRabbitMQ(cfg)
	case "kafka":
		return NewKafka(cfg)
	default:
		return nil, fmt.Errorf("unsupported broker type: %s (supported: rabbitmq, kafka)", cfg.Type)
	}
}
