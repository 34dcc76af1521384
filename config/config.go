package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RealtimeConfig настраивает websocket-комнаты.
type RealtimeConfig struct {
	SendBuffer     int           `yaml:"send_buffer"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	WriteWait      time.Duration `yaml:"write_wait"`
	PongWait       time.Duration `yaml:"pong_wait"`
	PingPeriod     time.Duration `yaml:"ping_period"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

type SchedulerConfig struct {
	AutoAssignOnFinish   bool `yaml:"auto_assign_on_finish"`
	IdempotencyCacheSize int  `yaml:"idempotency_cache_size"`
}

type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type R2Config struct {
	AccountID       string `yaml:"-"`
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
	BucketName      string `yaml:"bucket_name"`
	PublicBaseURL   string `yaml:"public_base_url"`
	Prefix          string `yaml:"prefix"`
}

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	ServerPort         int             `yaml:"server_port"`
	DatabaseURL        string          `yaml:"-"`
	DBAutoMigrate      bool            `yaml:"db_auto_migrate"`
	JWTSecretKey       string          `yaml:"-"`
	CORSAllowedOrigins []string        `yaml:"cors_allowed_origins"`
	LogLevel           slog.Level      `yaml:"-"`
	NATS               NATSConfig      `yaml:"nats"`
	R2                 R2Config        `yaml:"r2"`
	Realtime           RealtimeConfig  `yaml:"realtime"`
	Scheduler          SchedulerConfig `yaml:"scheduler"`
}

// AuthEnabled is false when no JWT secret is configured; mutating routes are
// then open, which is only meant for local development.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecretKey != ""
}

func defaults() *Config {
	pongWait := 60 * time.Second
	return &Config{
		ServerPort:         8080,
		CORSAllowedOrigins: []string{"*"},
		LogLevel:           slog.LevelInfo,
		NATS:               NATSConfig{SubjectPrefix: "courts"},
		R2:                 R2Config{Prefix: "snapshots"},
		Realtime: RealtimeConfig{
			SendBuffer:     256,
			MaxMessageSize: 4096,
			WriteWait:      10 * time.Second,
			PongWait:       pongWait,
			PingPeriod:     (pongWait * 9) / 10,
			CommandTimeout: 10 * time.Second,
		},
		Scheduler: SchedulerConfig{IdempotencyCacheSize: 256},
	}
}

// Load загружает конфигурацию: значения по умолчанию, затем YAML-файл из
// CONFIG_FILE (если задан), затем переменные окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
		}
		c.ServerPort = port
	}

	// Пустой DATABASE_URL означает хранилище в памяти
	c.DatabaseURL = os.Getenv("DATABASE_URL")
	c.JWTSecretKey = os.Getenv("JWT_SECRET_KEY")

	if v := os.Getenv("DB_AUTO_MIGRATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DB_AUTO_MIGRATE environment variable: %w", err)
		}
		c.DBAutoMigrate = b
	}

	if v := os.Getenv("AUTO_ASSIGN_ON_FINISH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid AUTO_ASSIGN_ON_FINISH environment variable: %w", err)
		}
		c.Scheduler.AutoAssignOnFinish = b
	}

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := make([]string, 0)
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORSAllowedOrigins = origins
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if err := c.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
		}
	}

	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
	}

	c.R2.AccountID = os.Getenv("R2_ACCOUNT_ID")
	c.R2.AccessKeyID = os.Getenv("R2_ACCESS_KEY_ID")
	c.R2.SecretAccessKey = os.Getenv("R2_SECRET_ACCESS_KEY")
	if v := os.Getenv("R2_BUCKET_NAME"); v != "" {
		c.R2.BucketName = v
	}
	if v := os.Getenv("R2_PUBLIC_BASE_URL"); v != "" {
		c.R2.PublicBaseURL = v
	}
	return nil
}

func (c *Config) validate() error {
	var errs []error
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.ServerPort))
	}
	if len(c.CORSAllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must list at least one origin"))
	}
	rt := c.Realtime
	if rt.SendBuffer <= 0 || rt.MaxMessageSize <= 0 {
		errs = append(errs, errors.New("realtime send_buffer and max_message_size must be positive"))
	}
	if rt.PongWait <= 0 || rt.PingPeriod <= 0 || rt.PingPeriod >= rt.PongWait {
		errs = append(errs, fmt.Errorf("realtime ping_period (%s) must be positive and shorter than pong_wait (%s)", rt.PingPeriod, rt.PongWait))
	}
	if rt.WriteWait <= 0 || rt.CommandTimeout <= 0 {
		errs = append(errs, errors.New("realtime write_wait and command_timeout must be positive"))
	}
	if c.Scheduler.IdempotencyCacheSize <= 0 {
		errs = append(errs, errors.New("scheduler idempotency_cache_size must be positive"))
	}
	return errors.Join(errs...)
}
