package config

import (
	"time"

	"github.com/caarlos0/env/v10"
)

// Notification sinks.
const (
	SinkLog   = "log"
	SinkRedis = "redis"
	SinkKafka = "kafka"
	SinkNATS  = "nats"
)

// Config holds all application configuration.
type Config struct {
	// Redis (leave empty to disable idempotency and readiness checks)
	RedisURL string `env:"REDIS_URL" envDefault:""`

	// HTTP Server
	HTTPPort            string        `env:"HTTP_PORT"             envDefault:"8080"`
	HTTPReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"     envDefault:"30s"`
	HTTPWriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"    envDefault:"30s"`
	HTTPIdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT"     envDefault:"60s"`
	HTTPShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Idempotency
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	// Tracing (empty endpoint keeps spans in process)
	ServiceName      string  `env:"OTEL_SERVICE_NAME"           envDefault:"memledger"`
	OTLPEndpoint     string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	TraceSampleRatio float64 `env:"OTEL_TRACES_SAMPLER_RATIO"   envDefault:"1"`

	// Rate limiting (0 disables)
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS"   envDefault:"0"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"20"`

	// Notifications
	NotifySink        string        `env:"NOTIFY_SINK"         envDefault:"log"`
	NotifyQueueSize   int           `env:"NOTIFY_QUEUE_SIZE"   envDefault:"1024"`
	NotifyWorkers     int           `env:"NOTIFY_WORKERS"      envDefault:"4"`
	NotifyMaxRetries  uint64        `env:"NOTIFY_MAX_RETRIES"  envDefault:"3"`
	NotifyRetryDelay  time.Duration `env:"NOTIFY_RETRY_DELAY"  envDefault:"50ms"`
	NotifyTimeout     time.Duration `env:"NOTIFY_TIMEOUT"      envDefault:"5s"`
	BreakerFailures   uint32        `env:"NOTIFY_BREAKER_FAILURES" envDefault:"5"`
	BreakerOpenPeriod time.Duration `env:"NOTIFY_BREAKER_OPEN"     envDefault:"30s"`

	RedisChannel string   `env:"NOTIFY_REDIS_CHANNEL" envDefault:"memledger.notifications"`
	KafkaBrokers []string `env:"KAFKA_BROKERS"        envDefault:"localhost:9092" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC"          envDefault:"memledger.notifications"`
	NATSURL      string   `env:"NATS_URL"             envDefault:"nats://localhost:4222"`
	NATSSubject  string   `env:"NATS_SUBJECT"         envDefault:"memledger.notifications"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	err := env.Parse(cfg)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}
