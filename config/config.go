package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string         `yaml:"environment"`
	HTTP        HTTPConfig     `yaml:"http"`
	Database    DatabaseConfig `yaml:"database"`
	Redis       RedisConfig    `yaml:"redis"`
	Kafka       KafkaConfig    `yaml:"kafka"`
	Auth        AuthConfig     `yaml:"auth"`
	Booking     BookingConfig  `yaml:"booking"`
	Payment     PaymentConfig  `yaml:"payment"`
	Worker      WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address   string `yaml:"address"`
	DocsDir   string `yaml:"docs_dir"`
	RateLimit int    `yaml:"rate_limit_rps"`
	RateBurst int    `yaml:"rate_limit_burst"`
}

type DatabaseConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Name           string `yaml:"name"`
	SSLMode        string `yaml:"ssl_mode"`
	MigrationsPath string `yaml:"migrations_path"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	PaymentEventsTopic string   `yaml:"payment_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	Issuer        string `yaml:"issuer"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

type BookingConfig struct {
	FlightsCacheTTLSeconds int `yaml:"flights_cache_ttl_seconds"`
	MaxPassengers          int `yaml:"max_passengers"`
}

type PaymentConfig struct {
	IdempotencyTTLHours int `yaml:"idempotency_ttl_hours"`
}

type WorkerConfig struct {
	CompletionSweepMinutes int `yaml:"completion_sweep_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required")
	}
	if cfg.Booking.MaxPassengers == 0 {
		cfg.Booking.MaxPassengers = 9
	}

	return &cfg, nil
}
