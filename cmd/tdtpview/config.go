package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ruslano69/tdtp-viewer/pkg/adapters"
	"github.com/ruslano69/tdtp-viewer/pkg/audit"
	"github.com/ruslano69/tdtp-viewer/pkg/brokers"
	"github.com/ruslano69/tdtp-viewer/pkg/export"
	"github.com/ruslano69/tdtp-viewer/pkg/processors"
	"github.com/ruslano69/tdtp-viewer/pkg/resilience"
	"github.com/ruslano69/tdtp-viewer/pkg/resultlog"
)

// Config is the top-level tdtpview configuration.
type Config struct {
	Server    ServerConfig      `yaml:"server"`
	Log       LogConfig         `yaml:"log"`
	Source    SourceConfig      `yaml:"source"`
	Cache     CacheConfig       `yaml:"cache"`
	Breaker   resilience.Config `yaml:"breaker"`
	Export    ExportConfig      `yaml:"export"`
	ResultLog resultlog.Config  `yaml:"result_log"`
	Audit     AuditConfig       `yaml:"audit"`
	Commands  CommandsConfig    `yaml:"commands"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`            // default ":8080"
	Name           string        `yaml:"name"`            // page title
	ReadTimeout    time.Duration `yaml:"read_timeout"`    // default 10s
	WriteTimeout   time.Duration `yaml:"write_timeout"`   // default 60s
	RequestTimeout time.Duration `yaml:"request_timeout"` // default 30s
}

// LogConfig selects level and output format.
type LogConfig struct {
	Level string `yaml:"level"` // trace..error, default info
	JSON  bool   `yaml:"json"`  // JSON lines instead of the console writer
}

// SourceConfig is the dataset backend plus viewer settings.
type SourceConfig struct {
	adapters.Config `yaml:",inline"`

	// Dataset is selected on startup when set.
	Dataset string `yaml:"dataset"`
	// Timeout bounds one fetch; 0 = no limit.
	Timeout time.Duration `yaml:"timeout"`
}

// RedisConfig is a minimal Redis connection spec.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// CacheConfig enables the Redis read-through dataset cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Redis   RedisConfig   `yaml:"redis"`
	Prefix  string        `yaml:"prefix"`
	TTL     time.Duration `yaml:"ttl"`
	Level   int           `yaml:"level"` // zstd level
}

// ExportConfig configures the export pipeline and its sinks. The in-memory
// download sink is always on.
type ExportConfig struct {
	export.Config `yaml:",inline"`

	Keep   int               `yaml:"keep"` // artifacts kept for download
	Dir    string            `yaml:"dir"`  // file sink; empty = disabled
	Mask   map[string]string `yaml:"mask"` // field -> mask pattern
	S3     *export.S3Config  `yaml:"s3"`
	Broker *brokers.Config   `yaml:"broker"`
}

// AuditConfig configures the audit trail.
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	File       string `yaml:"file"`        // empty = log appender only
	MaxSize    int64  `yaml:"max_size"`    // MB before rotation
	MaxBackups int    `yaml:"max_backups"` // rotated files kept
	Level      string `yaml:"level"`       // minimal, standard, full
	Async      bool   `yaml:"async"`
}

// CommandsConfig enables the broker command listener.
type CommandsConfig struct {
	Enabled bool           `yaml:"enabled"`
	Broker  brokers.Config `yaml:"broker"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Server.Name = "tdtpview"
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 60 * time.Second
	cfg.Server.RequestTimeout = 30 * time.Second
	cfg.Log.Level = "info"
	cfg.Cache.Prefix = "tdtpview"
	cfg.Cache.TTL = 5 * time.Minute
	cfg.Cache.Level = processors.DefaultCompressionLevel
	cfg.Breaker = resilience.DefaultConfig("source")
	cfg.Breaker.Enabled = false
	cfg.Export.Config = export.DefaultConfig()
	cfg.Export.Keep = export.DefaultMemoryKeep
	cfg.ResultLog.Prefix = resultlog.DefaultPrefix
	cfg.ResultLog.TTL = 3600
	cfg.Audit.Level = "standard"
	cfg.Audit.MaxSize = 100
	cfg.Audit.MaxBackups = 5
	return cfg
}

// LoadConfig reads the YAML config at path over the defaults. An empty path
// yields the defaults. TDTPVIEW_SOURCE_DSN fills source.dsn when it is empty.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	if cfg.Source.DSN == "" {
		cfg.Source.DSN = os.Getenv("TDTPVIEW_SOURCE_DSN")
	}
	return cfg, nil
}

// Validate checks the configuration after flags and dev mode are applied.
func (c *Config) Validate() error {
	if c.Source.Type == "" {
		return fmt.Errorf("config: source.type is required (available: %v)", adapters.GetRegisteredTypes())
	}
	if !adapters.IsRegistered(c.Source.Type) {
		return fmt.Errorf("config: unknown source.type %q (available: %v)", c.Source.Type, adapters.GetRegisteredTypes())
	}
	if c.Source.DSN == "" {
		return fmt.Errorf("config: source.dsn is required (or set TDTPVIEW_SOURCE_DSN)")
	}
	if c.Source.Timeout < 0 {
		return fmt.Errorf("config: source.timeout must be >= 0")
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}

	if c.Cache.Enabled && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("config: cache.redis.addr is required when the cache is enabled")
	}
	if c.Breaker.Enabled {
		if err := c.Breaker.Validate(); err != nil {
			return fmt.Errorf("config: breaker: %w", err)
		}
	}

	if c.Export.Keep < 0 {
		return fmt.Errorf("config: export.keep must be >= 0")
	}
	for field, pattern := range c.Export.Mask {
		if _, err := processors.ParseMaskPattern(pattern); err != nil {
			return fmt.Errorf("config: export.mask.%s: %w", field, err)
		}
	}
	if err := c.Export.Retry.Validate(); err != nil {
		return fmt.Errorf("config: export.retry: %w", err)
	}
	if c.Export.S3 != nil && c.Export.S3.Bucket == "" {
		return fmt.Errorf("config: export.s3.bucket is required")
	}
	if c.Export.Broker != nil {
		if err := validateBroker(*c.Export.Broker); err != nil {
			return fmt.Errorf("config: export.broker: %w", err)
		}
	}

	if c.ResultLog.Enabled && c.ResultLog.Address == "" {
		return fmt.Errorf("config: result_log.address is required when the result log is enabled")
	}
	if c.Audit.Enabled {
		if _, err := audit.ParseLevel(c.Audit.Level); err != nil {
			return fmt.Errorf("config: audit.level: %w", err)
		}
	}
	if c.Commands.Enabled {
		if err := validateBroker(c.Commands.Broker); err != nil {
			return fmt.Errorf("config: commands.broker: %w", err)
		}
	}
	return nil
}

func validateBroker(cfg brokers.Config) error {
	_, err := brokers.New(cfg)
	return err
}
