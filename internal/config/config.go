package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env       string `env:"APP_ENV" env-default:"development"`
	Port      string `env:"PORT" env-default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"text"` // text or json

	RedisURL  string `env:"REDIS_URL" env-default:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" env-default:"0"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" env-default:"720h"`

	// Max pleas per session per minute
	PleaRateLimit int `env:"PLEA_RATE_LIMIT" env-default:"10"`

	GenLayer GenLayerConfig
}

type GenLayerConfig struct {
	RPCURL          string        `env:"GENLAYER_RPC_URL" env-default:"https://studio.genlayer.com/api"`
	ChainID         int64         `env:"GENLAYER_CHAIN_ID" env-default:"61999"`
	ReceiptRetries  int           `env:"GENLAYER_RECEIPT_RETRIES" env-default:"120"`
	ReceiptInterval time.Duration `env:"GENLAYER_RECEIPT_INTERVAL" env-default:"3s"`
	RequestTimeout  time.Duration `env:"GENLAYER_REQUEST_TIMEOUT" env-default:"30s"`
	GasLimit        uint64        `env:"GENLAYER_GAS_LIMIT" env-default:"30000000"`
	DefaultContract string        `env:"GENLAYER_CONTRACT_ADDRESS"`
}

const devJWTSecret = "dragon-treasure-dev-secret"

// Load reads the configuration from the environment. The caller is expected
// to have loaded any .env file beforehand.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.JWTSecret = devJWTSecret
	}

	if c.GenLayer.RPCURL == "" {
		return fmt.Errorf("GENLAYER_RPC_URL must not be empty")
	}
	if c.GenLayer.ReceiptRetries < 1 {
		return fmt.Errorf("GENLAYER_RECEIPT_RETRIES must be at least 1, got %d", c.GenLayer.ReceiptRetries)
	}
	if c.GenLayer.ReceiptInterval <= 0 {
		return fmt.Errorf("GENLAYER_RECEIPT_INTERVAL must be positive")
	}
	if c.GenLayer.GasLimit == 0 {
		return fmt.Errorf("GENLAYER_GAS_LIMIT must be positive")
	}
	if c.PleaRateLimit < 1 {
		return fmt.Errorf("PLEA_RATE_LIMIT must be at least 1, got %d", c.PleaRateLimit)
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
