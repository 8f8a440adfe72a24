// Package config loads the core runtime's configuration from environment
// variables, mirroring the reference platform's Config-struct-plus-env-tag
// convention (components/ledger/internal/bootstrap/config.go).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dataexplorer/core/internal/apperr"
)

// Config is the top-level configuration for the core runtime process.
type Config struct {
	EnvName  string
	LogLevel string

	ServerAddress string

	ModuleRoot string

	EmbeddedDBPath string

	RemoteDSN         string
	RemoteMaxAttempts int

	RedisAddr string

	LLMEndpoint string
	LLMKey      string

	ConversationTTL        time.Duration
	ConversationWindowSize int
	ConversationPersistent bool

	SchemaDocPath string

	QueryDefaultLimit int
	QueryHardCeiling  int
}

// Load reads the Config from the process environment, applying the
// defaults documented in spec.md §4 and §6, and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		EnvName:       getEnv("APP_ENV", "production"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		ModuleRoot:    getEnv("APP_MODULE_ROOT", "./modules"),

		EmbeddedDBPath: getEnv("APP_DB_PATH", "./data/core.db"),

		RemoteDSN:         os.Getenv("APP_REMOTE_DSN"),
		RemoteMaxAttempts: 5,

		RedisAddr: getEnv("APP_REDIS_ADDR", "localhost:6379"),

		LLMEndpoint: os.Getenv("APP_LLM_ENDPOINT"),
		LLMKey:      os.Getenv("APP_LLM_KEY"),

		ConversationTTL:        24 * time.Hour,
		ConversationWindowSize: 10,
		ConversationPersistent: getEnv("APP_CONVERSATION_PERSISTENT", "false") == "true",

		SchemaDocPath: getEnv("APP_SCHEMA_DOC_PATH", "./config/schema.yaml"),

		QueryDefaultLimit: 1000,
		QueryHardCeiling:  50000,
	}

	if v := os.Getenv("APP_CONVERSATION_TTL_HOURS"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindConfig, "APP_CONVERSATION_TTL_HOURS must be an integer", err)
		}

		cfg.ConversationTTL = time.Duration(hours) * time.Hour
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects a configuration missing required values. Startup
// aborts on a non-nil return (ErrConfig), per §7.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ModuleRoot) == "" {
		return apperr.New(apperr.KindConfig, "APP_MODULE_ROOT must not be empty")
	}

	if strings.TrimSpace(c.EmbeddedDBPath) == "" {
		return apperr.New(apperr.KindConfig, "APP_DB_PATH must not be empty")
	}

	if c.QueryDefaultLimit <= 0 || c.QueryDefaultLimit > c.QueryHardCeiling {
		return apperr.New(apperr.KindConfig, fmt.Sprintf("invalid query default limit %d (ceiling %d)", c.QueryDefaultLimit, c.QueryHardCeiling))
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
