package config

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string        `env:"PORT,       default=8080"`
	Env       string        `env:"ENV,        default=development"`
	JWTSecret string        `env:"JWT_SECRET, required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL,  default=24h"`
	LogLevel  string        `env:"LOG_LEVEL,  default=info"`

	// BootstrapAdmins maps external chat identities to usernames:
	// BOOTSTRAP_ADMINS="123456789:alice,987654321:bob"
	BootstrapAdmins map[string]string `env:"BOOTSTRAP_ADMINS"`

	Mongo      MongoConfig
	Redis      RedisConfig
	Notify     NotifyConfig
	Summarizer SummarizerConfig
	Jobs       JobsConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=assignment_marketplace"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// NotifyConfig selects the notification transport. When AMQPURL is set,
// events are published to the exchange; otherwise WebhookURL is used.
type NotifyConfig struct {
	WebhookURL   string `env:"NOTIFY_WEBHOOK_URL"`
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE, default=marketplace.notifications"`
	Workers      int    `env:"DISPATCH_WORKERS, default=4"`
}

type SummarizerConfig struct {
	URL     string        `env:"SUMMARIZER_URL"`
	APIKey  string        `env:"SUMMARIZER_API_KEY"`
	Timeout time.Duration `env:"SUMMARIZER_TIMEOUT, default=20s"`
}

type JobsConfig struct {
	ReconcileSchedule string `env:"RECONCILE_SCHEDULE, default=0 0 * * *"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// AdminPair is one BOOTSTRAP_ADMINS entry.
type AdminPair struct {
	DiscordID string
	Username  string
}

// Admins returns BootstrapAdmins in a stable order.
func (c *Config) Admins() []AdminPair {
	out := make([]AdminPair, 0, len(c.BootstrapAdmins))
	for id, name := range c.BootstrapAdmins {
		out = append(out, AdminPair{DiscordID: id, Username: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DiscordID < out[j].DiscordID })
	return out
}
