// Package config defines the configuration for the whole application and
// loads it from a YAML file combined with environment variables. cleanenv
// lets the same config work locally and in containers: the file provides
// defaults, the environment overrides them.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root structure loaded once at service start.
type Config struct {
	Env        string     `yaml:"env" env:"ENV" env-required:"true"`
	Postgres   Postgres   `yaml:"postgres" env-required:"true"`
	Redis      Redis      `yaml:"redis" env-required:"true"`
	Kafka      Kafka      `yaml:"kafka" env-required:"true"`
	HTTPServer HTTPServer `yaml:"http_server" env-required:"true"`
	Payment    Payment    `yaml:"payment" env-required:"true"`
	Checkout   Checkout   `yaml:"checkout"`
}

// Postgres holds the connection parameters for the order database.
type Postgres struct {
	Username string `yaml:"username" env:"POSTGRES_USER" env-required:"true"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-required:"true"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-required:"true"`
	Database string `yaml:"database" env:"POSTGRES_DB" env-required:"true"`
}

// Redis holds the connection parameters for the order cache.
type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-required:"true"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-required:"true"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
}

// Kafka holds the settings for the checkout events producer.
type Kafka struct {
	BootstrapServers []string `yaml:"bootstrap.servers" env:"KAFKA_BOOTSTRAP_SERVERS" env-required:"true"`
	Topic            string   `yaml:"topic" env-required:"true"`
	Producer         Producer `yaml:"producer" env-required:"true"`
}

// Producer defines the Kafka producer settings.
type Producer struct {
	Acks              int    `yaml:"acks" env-required:"true"`
	EnableIdempotence bool   `yaml:"enable.idempotence"`
	Retries           int    `yaml:"retries"`
	TransactionalId   string `yaml:"transactional.id"`
}

// HTTPServer holds the parameters of the embedded HTTP server.
type HTTPServer struct {
	Address     string        `yaml:"address" env-required:"true"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// Payment holds the third-party payment provider endpoint and credentials.
// Keys live in config instead of package-level constants so tests and the
// sandbox provider can swap them out.
type Payment struct {
	BaseURL   string `yaml:"base_url" env:"PAYMENT_BASE_URL" env-required:"true"`
	ClientKey string `yaml:"client_key" env:"PAYMENT_CLIENT_KEY" env-required:"true"`
	SecretKey string `yaml:"secret_key" env:"PAYMENT_SECRET_KEY" env-required:"true"`
}

// Checkout holds the client-facing flow settings: the public origin the
// payment redirect URLs are rooted at, and the API base the flow engine
// talks to.
type Checkout struct {
	Origin     string `yaml:"origin" env:"CHECKOUT_ORIGIN" env-default:"http://localhost:3000"`
	APIBaseURL string `yaml:"api_base_url" env:"CHECKOUT_API_BASE_URL" env-default:"http://localhost:8080/api"`
}

// MustLoad reads the configuration from the file pointed to by CONFIG_PATH
// plus the environment.
//
// The "Must" prefix means it calls log.Fatalf on any load or parse error.
// That is intentional for startup: the service cannot run without a valid
// configuration.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}

	if _, err := os.Stat(configPath); err != nil {
		log.Fatalf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}

	return &cfg
}
