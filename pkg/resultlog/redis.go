package resultlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix - префикс ключей и каналов по умолчанию
const DefaultPrefix = "tdtpview"

// Config - настройки публикации результатов в Redis
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
	TTL      int    `yaml:"ttl"` // секунды; 0 = без истечения
}

// ExportResult описывает завершенную доставку экспорта.
//
// Redis-ключи:
//
//	SET  <prefix>:export:<dataset>:state  <JSON>  EX <ttl>  последний экспорт набора
//	PUB  <prefix>:export:<dataset>                          событие для подписчиков
type ExportResult struct {
	ArtifactID string    `json:"artifact_id"`
	Dataset    string    `json:"dataset"`
	Format     string    `json:"format"`
	FileName   string    `json:"file_name"`
	Status     string    `json:"status"` // "success" | "failed"
	Sinks      []string  `json:"sinks"`
	Size       int       `json:"size"`
	Rows       int       `json:"rows"`
	Checksum   string    `json:"checksum,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`
	Error      *string   `json:"error,omitempty"`
}

// ViewerState описывает переход состояния просмотрщика.
//
// Redis-ключи:
//
//	SET  <prefix>:viewer:state  <JSON>  EX <ttl>
//	PUB  <prefix>:viewer
type ViewerState struct {
	Dataset    string    `json:"dataset"`
	Status     string    `json:"status"`
	Generation uint64    `json:"generation"`
	RowCount   int       `json:"row_count"`
	Columns    []string  `json:"columns"`
	Message    string    `json:"message,omitempty"`
	At         time.Time `json:"at"`
}

// RedisPublisher публикует результаты в Redis
type RedisPublisher struct {
	client     *redis.Client
	prefix     string
	ttl        time.Duration
	ownsClient bool
}

// NewRedisPublisher создает publisher с собственным подключением
func NewRedisPublisher(config Config) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Address,
		Password: config.Password,
		DB:       config.DB,
	})
	p := NewRedisPublisherWithClient(client, config)
	p.ownsClient = true
	return p
}

// NewRedisPublisherWithClient использует существующий клиент (Close его не закрывает)
func NewRedisPublisherWithClient(client *redis.Client, config Config) *RedisPublisher {
	prefix := config.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisPublisher{
		client: client,
		prefix: prefix,
		ttl:    time.Duration(config.TTL) * time.Second,
	}
}

// ExportKey возвращает ключ состояния последнего экспорта набора
func (p *RedisPublisher) ExportKey(dataset string) string {
	return fmt.Sprintf("%s:export:%s:state", p.prefix, dataset)
}

// ExportChannel возвращает канал событий экспорта набора
func (p *RedisPublisher) ExportChannel(dataset string) string {
	return fmt.Sprintf("%s:export:%s", p.prefix, dataset)
}

// ViewerKey возвращает ключ последнего состояния просмотрщика
func (p *RedisPublisher) ViewerKey() string {
	return p.prefix + ":viewer:state"
}

// ViewerChannel возвращает канал событий просмотрщика
func (p *RedisPublisher) ViewerChannel() string {
	return p.prefix + ":viewer"
}

// PublishExport публикует результат экспорта (успешного или с ошибкой)
func (p *RedisPublisher) PublishExport(ctx context.Context, result ExportResult) error {
	return p.publish(ctx, p.ExportKey(result.Dataset), p.ExportChannel(result.Dataset), result)
}

// PublishState публикует состояние просмотрщика
func (p *RedisPublisher) PublishState(ctx context.Context, state ViewerState) error {
	return p.publish(ctx, p.ViewerKey(), p.ViewerChannel(), state)
}

// publish:
//   - SET <key> <JSON> EX <ttl>  → для опроса (polling)
//   - PUBLISH <channel> <JSON>   → для подписки (pub/sub)
func (p *RedisPublisher) publish(ctx context.Context, key, channel string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := p.client.Set(ctx, key, payload, p.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}

	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}

	return nil
}

// Close закрывает соединение с Redis, если оно создано publisher'ом
func (p *RedisPublisher) Close() error {
	if !p.ownsClient {
		return nil
	}
	return p.client.Close()
}
