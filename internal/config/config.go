package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Logging   LoggingConfig   `json:"logging"`
	Redis     RedisConfig     `json:"redis"`
	Detection DetectionConfig `json:"detection"`
	Notify    NotifyConfig    `json:"notify"`
}

type ServerConfig struct {
	BindAddr  string `json:"bindAddr"`
	AuthToken string `json:"authToken"`
}

type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
	SSLMode  string `json:"sslmode"`
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type LoggingConfig struct {
	Level string `json:"level"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type DetectionConfig struct {
	ScanInterval string `json:"scanInterval"` // e.g. "1m"
	RuleCacheTTL string `json:"ruleCacheTTL"` // e.g. "30s"
	LockTTL      string `json:"lockTTL"`      // e.g. "30s"
}

type NotifyConfig struct {
	WebhookTimeout string `json:"webhookTimeout"` // e.g. "10s"
	SMTPAddr       string `json:"smtpAddr"`       // host:port, empty disables email
	SMTPFrom       string `json:"smtpFrom"`
}

func Load() (*Config, error) {
	configFile := flag.String("f", "", "Path to configuration file")
	flag.Parse()

	cfg := &Config{
		Server: ServerConfig{
			BindAddr:  getEnv("SERVER_BIND_ADDR", "0.0.0.0:8080"),
			AuthToken: getEnv("SERVER_AUTH_TOKEN", ""),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "password"),
			DBName:   getEnv("DB_NAME", "logward"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "debug"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Detection: DetectionConfig{
			ScanInterval: getEnv("ALERT_SCAN_INTERVAL", "1m"),
			RuleCacheTTL: getEnv("RULE_CACHE_TTL", "30s"),
			LockTTL:      getEnv("TRIGGER_LOCK_TTL", "30s"),
		},
		Notify: NotifyConfig{
			WebhookTimeout: getEnv("NOTIFY_WEBHOOK_TIMEOUT", "10s"),
			SMTPAddr:       getEnv("NOTIFY_SMTP_ADDR", ""),
			SMTPFrom:       getEnv("NOTIFY_SMTP_FROM", "alerts@logward.local"),
		},
	}

	if *configFile != "" {
		if err := loadFromFile(cfg, *configFile); err != nil {
			log.Err(err)
			return nil, err
		}
	}

	// fill reasonable defaults when fields omitted in file
	if cfg.Server.BindAddr == "" {
		cfg.Server.BindAddr = "0.0.0.0:8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Detection.ScanInterval == "" {
		cfg.Detection.ScanInterval = "1m"
	}
	if cfg.Detection.RuleCacheTTL == "" {
		cfg.Detection.RuleCacheTTL = "30s"
	}
	if cfg.Detection.LockTTL == "" {
		cfg.Detection.LockTTL = "30s"
	}
	if cfg.Notify.WebhookTimeout == "" {
		cfg.Notify.WebhookTimeout = "10s"
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
