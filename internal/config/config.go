package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Consumer ConsumerConfig `yaml:"consumer"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the event bus connection settings
type RedisConfig struct {
	URL string `yaml:"url"`
}

// DeliveryConfig holds vendor delivery settings.
// Sender selects the outbound channel: "vendor" posts to the dummy vendor
// endpoint, "ses" sends through AWS SESv2.
type DeliveryConfig struct {
	Sender          string `yaml:"sender"`
	VendorURL       string `yaml:"vendor_url"`
	SendTimeoutSecs int    `yaml:"send_timeout_seconds"`
	MessageTemplate string `yaml:"message_template"`

	SESAccessKey string `yaml:"ses_access_key"`
	SESSecretKey string `yaml:"ses_secret_key"`
	SESRegion    string `yaml:"ses_region"`
	SESFrom      string `yaml:"ses_from"`
}

// ConsumerConfig holds event consumer batching settings
type ConsumerConfig struct {
	BatchWindowSecs int `yaml:"batch_window_seconds"`
	MaxQueue        int `yaml:"max_queue"`
}

// SendTimeout returns the per-recipient delivery timeout.
func (d DeliveryConfig) SendTimeout() time.Duration {
	return time.Duration(d.SendTimeoutSecs) * time.Second
}

// BatchWindow returns the communication-log batching window.
func (c ConsumerConfig) BatchWindow() time.Duration {
	return time.Duration(c.BatchWindowSecs) * time.Second
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return &cfg, nil
}

func (cfg *Config) setDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = "redis://localhost:6379"
	}
	if cfg.Delivery.Sender == "" {
		cfg.Delivery.Sender = "vendor"
	}
	if cfg.Delivery.SendTimeoutSecs == 0 {
		cfg.Delivery.SendTimeoutSecs = 10
	}
	if cfg.Delivery.SESRegion == "" {
		cfg.Delivery.SESRegion = "us-west-2"
	}
	if cfg.Consumer.BatchWindowSecs == 0 {
		cfg.Consumer.BatchWindowSecs = 5
	}
	if cfg.Consumer.MaxQueue == 0 {
		cfg.Consumer.MaxQueue = 10000
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in deployment.
// A missing config file is not an error: env vars alone can stand up the
// whole service.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg = &Config{}
		cfg.setDefaults()
	}

	// Override with environment variables if present
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.Redis.URL = redisURL
	}
	if v := os.Getenv("DELIVERY_SENDER"); v != "" {
		cfg.Delivery.Sender = v
	}
	if v := os.Getenv("VENDOR_URL"); v != "" {
		cfg.Delivery.VendorURL = v
	}
	if v := os.Getenv("MESSAGE_TEMPLATE"); v != "" {
		cfg.Delivery.MessageTemplate = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Delivery.SESAccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Delivery.SESSecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Delivery.SESRegion = v
	}
	if v := os.Getenv("AWS_SES_FROM"); v != "" {
		cfg.Delivery.SESFrom = v
	}
	if v := os.Getenv("BATCH_WINDOW_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Consumer.BatchWindowSecs = n
		}
	}
	if v := os.Getenv("BATCH_MAX_QUEUE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Consumer.MaxQueue = n
		}
	}

	return cfg, nil
}
