package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	GRPC        GRPCServer

	Storefront Storefront `envPrefix:"STOREFRONT_"`
	Stripe     Stripe     `envPrefix:"STRIPE_"`
	Redis      Redis      `envPrefix:"REDIS_"`
	Mongo      Mongo      `envPrefix:"MONGO_"`
	Postgres   Postgres   `envPrefix:"DB_"`
	Kafka      Kafka      `envPrefix:"KAFKA_"`
	Auth       Auth       `envPrefix:"AUTH_"`
	Reconcile  Reconcile  `envPrefix:"RECONCILE_"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host            string        `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port            string        `env:"HTTP_PORT" envDefault:"8080"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	MaxBodyBytes    int64         `env:"HTTP_MAX_BODY_BYTES" envDefault:"1048576"`
}

type GRPCServer struct {
	Port string `env:"GRPC_PORT" envDefault:"50057"`
}

type Storefront struct {
	BaseURL        string        `env:"BASE_URL" envDefault:"http://localhost:5000"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`
}

type Stripe struct {
	SecretKey      string        `env:"SECRET_KEY"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"20s"`
}

type Redis struct {
	Addr         string        `env:"ADDR" envDefault:"localhost:6379"`
	Password     string        `env:"PASSWORD"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	PageStateTTL time.Duration `env:"PAGE_STATE_TTL" envDefault:"1h"`
}

type Mongo struct {
	URI    string `env:"URI" envDefault:"mongodb://localhost:27017"`
	DBName string `env:"DB_NAME" envDefault:"storefront"`
}

type Postgres struct {
	Host           string `env:"HOST" envDefault:"localhost"`
	Port           int    `env:"PORT" envDefault:"5432"`
	User           string `env:"USER" envDefault:"postgres"`
	Password       string `env:"PASSWORD" envDefault:"postgres"`
	Name           string `env:"NAME" envDefault:"checkout"`
	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"./internal/repository/migrations"`
}

type Kafka struct {
	Brokers []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic   string   `env:"TOPIC" envDefault:"checkout-events"`
}

type Auth struct {
	JWTSecret string `env:"JWT_SECRET"`
}

type Reconcile struct {
	EventTick    time.Duration `env:"EVENT_TICK" envDefault:"1s"`
	RecoveryTick time.Duration `env:"RECOVERY_TICK" envDefault:"30s"`
	StuckAfter   time.Duration `env:"STUCK_AFTER" envDefault:"5m"`
	MaxAttempts  int           `env:"MAX_ATTEMPTS" envDefault:"10"`
	BatchSize    int           `env:"BATCH_SIZE" envDefault:"100"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET is required")
	}
	if c.Stripe.SecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if c.Reconcile.MaxAttempts <= 0 {
		return fmt.Errorf("RECONCILE_MAX_ATTEMPTS must be positive")
	}
	return nil
}

func (h HTTPServer) Addr() string {
	return h.Host + ":" + h.Port
}
