package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Rabbit    RabbitConfig
	Inventory InventoryConfig
	Log       LogConfig

	// DisableHostedServices starts the HTTP edge without the saga
	// consumers, TTL sweeper and outbox relay. Used by migration and
	// smoke-test runs.
	DisableHostedServices bool `envconfig:"DISABLE_HOSTED_SERVICES" default:"false"`
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Port            string `envconfig:"SERVER_PORT" default:"3000"`
	ShutdownTimeout int    `envconfig:"SHUTDOWN_TIMEOUT" default:"30"` // seconds
}

// DBConfig holds database-related configuration.
// ORDERS_CONN takes precedence when set; the discrete fields exist
// for local development.
// WARNING: Default password is for local development only.
// In production, always set DB_PASSWORD via environment variable.
type DBConfig struct {
	Conn     string `envconfig:"ORDERS_CONN"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"` // CHANGE IN PRODUCTION
	Name     string `envconfig:"DB_NAME" default:"orders_db"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"` // Use "require" in production
	MaxConns int    `envconfig:"DB_MAX_CONNS" default:"25"`
	MinConns int    `envconfig:"DB_MIN_CONNS" default:"5"`
}

// DSN returns the PostgreSQL connection string.
func (c DBConfig) DSN() string {
	if c.Conn != "" {
		return c.Conn
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d&pool_min_conns=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.MaxConns, c.MinConns)
}

// RabbitConfig holds RabbitMQ connection configuration.
type RabbitConfig struct {
	Host  string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port  int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User  string `envconfig:"RABBITMQ_USER" default:"guest"`
	Pass  string `envconfig:"RABBITMQ_PASS" default:"guest"`
	VHost string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

// URL returns the AMQP connection URL.
func (c RabbitConfig) URL() string {
	vhost := c.VHost
	if vhost == "/" {
		vhost = ""
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", c.User, c.Pass, c.Host, c.Port, vhost)
}

// InventoryConfig holds reservation engine configuration.
type InventoryConfig struct {
	TTLSeconds int `envconfig:"INVENTORY_TTL_SECONDS" default:"600"`
}

// TTL returns the reservation time-to-live as a duration.
func (c InventoryConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load parses environment variables into the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
