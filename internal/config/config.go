package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CSRF            bool          `yaml:"csrf"`
	CookieSecure    bool          `yaml:"cookie_secure"`
	CookieDomain    string        `yaml:"cookie_domain"`
}

type SessionConfig struct {
	Store         string        `yaml:"store"`
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisPrefix   string        `yaml:"redis_prefix"`
}

type AssistantConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRounds   int           `yaml:"max_rounds"`
	MaxRetries  int           `yaml:"max_retries"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Config настройки сервиса: файл YAML, поверх него переменные окружения
type Config struct {
	Profile   string          `yaml:"profile"`
	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
	Assistant AssistantConfig `yaml:"assistant"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`

	SessionKey []byte `yaml:"-"`
	CSRFKey    []byte `yaml:"-"`

	// Warnings собираются до создания логгера
	Warnings []string `yaml:"-"`
}

func Default() *Config {
	return &Config{
		Profile: "vela-flora",
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Session: SessionConfig{
			Store:       StoreMemory,
			TTL:         24 * time.Hour,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "storefront:session:",
		},
		Assistant: AssistantConfig{
			Temperature: 0.7,
			Timeout:     30 * time.Second,
			MaxRounds:   3,
			MaxRetries:  2,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Tracing: TracingConfig{ServiceName: "storefront"},
	}
}

// Load читает конфигурацию. Пустой path означает только значения по умолчанию и окружение.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.SessionKey = cfg.loadKey("SESSION_KEY")
	if cfg.Server.CSRF {
		cfg.CSRFKey = cfg.loadKey("CSRF_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Profile = getEnv("STOREFRONT_PROFILE", c.Profile)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.CookieDomain = getEnv("COOKIE_DOMAIN", c.Server.CookieDomain)
	c.Session.Store = getEnv("SESSION_STORE", c.Session.Store)
	c.Session.RedisAddr = getEnv("REDIS_ADDR", c.Session.RedisAddr)
	c.Session.RedisPassword = getEnv("REDIS_PASSWORD", c.Session.RedisPassword)
	c.Assistant.Model = getEnv("GEMINI_MODEL", c.Assistant.Model)
	c.Assistant.APIKey = getEnv("GEMINI_API_KEY", getEnv("API_KEY", c.Assistant.APIKey))
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)

	for key, dst := range map[string]*bool{
		"COOKIE_SECURE":   &c.Server.CookieSecure,
		"CSRF_ENABLED":    &c.Server.CSRF,
		"TRACING_ENABLED": &c.Tracing.Enabled,
	} {
		if v, ok := os.LookupEnv(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
			*dst = b
		}
	}
	return nil
}

func (c *Config) loadKey(env string) []byte {
	raw := os.Getenv(env)
	if raw == "" {
		c.Warnings = append(c.Warnings, env+" not set, generated a random key; sessions will not survive a restart")
		return generateRandomBytes(32)
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil || len(key) < 32 {
		c.Warnings = append(c.Warnings, env+" is invalid or shorter than 32 bytes, generated a random key")
		return generateRandomBytes(32)
	}
	return key
}

// Validate проверяет значения после наложения окружения
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Profile) == "" {
		errs = append(errs, errors.New("profile is required"))
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("invalid port %q", c.Server.Port))
	}
	switch c.Session.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Session.RedisAddr == "" {
			errs = append(errs, errors.New("session.redis_addr is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session store %q", c.Session.Store))
	}
	if c.Assistant.Temperature < 0 || c.Assistant.Temperature > 2 {
		errs = append(errs, fmt.Errorf("assistant.temperature %v out of range [0, 2]", c.Assistant.Temperature))
	}
	if c.Assistant.MaxRounds < 1 {
		errs = append(errs, errors.New("assistant.max_rounds must be at least 1"))
	}
	if c.Assistant.MaxRetries < 0 {
		errs = append(errs, errors.New("assistant.max_retries must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return b
}
