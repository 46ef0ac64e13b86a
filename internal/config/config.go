package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
)

type DatabaseConfig struct {
	Driver     string `envconfig:"DB_DRIVER" default:"mysql"`
	Host       string `envconfig:"DB_HOST" default:"localhost"`
	Port       string `envconfig:"DB_PORT" default:"3306"`
	User       string `envconfig:"DB_USER" default:"planner"`
	Password   string `envconfig:"DB_PASSWORD" default:"plannerpassword"`
	Name       string `envconfig:"DB_NAME" default:"project_planner"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"planner.db"`
}

type ServerConfig struct {
	HTTPPort      string `envconfig:"HTTP_PORT" default:"8080"`
	GinMode       string `envconfig:"GIN_MODE" default:"debug"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	SessionSecret string `envconfig:"SESSION_SECRET" default:"default-secret-key-change-me"`
	// Sessions are kept in cookies when RedisHost is empty.
	RedisHost string `envconfig:"REDIS_HOST"`
	RedisPort string `envconfig:"REDIS_PORT" default:"6379"`
}

type GenerationConfig struct {
	Provider     string        `envconfig:"AI_PROVIDER" default:"openai"`
	OpenAIAPIKey string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string        `envconfig:"OPENAI_MODEL" default:"gpt-4o"`
	OpenAIURL    string        `envconfig:"OPENAI_BASE_URL"`
	GeminiAPIKey string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	Timeout      time.Duration `envconfig:"GENERATION_TIMEOUT" default:"45s"`
	CacheSize    int           `envconfig:"PATTERN_CACHE_SIZE" default:"256"`
	CacheTTL     time.Duration `envconfig:"PATTERN_CACHE_TTL" default:"24h"`
}

type Config struct {
	DatabaseConfig
	ServerConfig
	GenerationConfig
}

// Every variable may also be given with the PLANNER_ prefix, which wins.
const namespace = "PLANNER"

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(namespace, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Driver = strings.ToLower(cfg.Driver)
	cfg.Provider = strings.ToLower(cfg.Provider)

	switch cfg.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
	switch cfg.Provider {
	case "openai", "gemini", "none", "":
	default:
		return nil, fmt.Errorf("unsupported AI_PROVIDER %q", cfg.Provider)
	}
	if cfg.CacheSize <= 0 {
		return nil, fmt.Errorf("PATTERN_CACHE_SIZE must be positive, got %d", cfg.CacheSize)
	}
	return &cfg, nil
}

// ZapLevel parses LogLevel, defaulting to info.
func (c *ServerConfig) ZapLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// RedisAddr returns host:port, or "" when sessions should use cookies.
func (c *ServerConfig) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return c.RedisHost + ":" + c.RedisPort
}
