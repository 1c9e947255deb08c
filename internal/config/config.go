package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "STOREFRONT_"

type Config struct {
	Service string `yaml:"service" validate:"required"`
	Env     string `yaml:"env" validate:"required"`

	Log      Log      `yaml:"log"`
	HTTP     HTTP     `yaml:"http"`
	Auth     Auth     `yaml:"auth"`
	Storage  Storage  `yaml:"storage"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	RabbitMQ RabbitMQ `yaml:"rabbitmq"`
	Payment  Payment  `yaml:"payment"`
	Outbox   Outbox   `yaml:"outbox"`
}

type Log struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	File  string `yaml:"file"`
}

type HTTP struct {
	Addr            string        `yaml:"addr" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwt_secret" validate:"required,min=16"`
	Issuer    string        `yaml:"issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// Storage selects the backend: "memory" needs nothing else, "postgres" needs Postgres.DSN.
type Storage struct {
	Driver string `yaml:"driver" validate:"oneof=memory postgres"`
}

type Postgres struct {
	DSN             string        `yaml:"dsn" validate:"required_if=Enabled true"`
	MaxConns        int32         `yaml:"max_conns" validate:"gte=0"`
	MinConns        int32         `yaml:"min_conns" validate:"gte=0"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`

	Enabled bool `yaml:"-"`
}

type Redis struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	CartTTL  time.Duration `yaml:"cart_ttl"`
}

func (r Redis) Enabled() bool { return r.Addr != "" }

type RabbitMQ struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

func (r RabbitMQ) Enabled() bool { return r.URL != "" }

type Payment struct {
	WebhookSecret string `yaml:"webhook_secret" validate:"required,min=16"`
}

type Outbox struct {
	QueueSize      int           `yaml:"queue_size" validate:"gte=0"`
	Concurrency    int           `yaml:"concurrency" validate:"gte=0"`
	HandlerTimeout time.Duration `yaml:"handler_timeout"`
}

func Default() Config {
	return Config{
		Service: "storefront",
		Env:     "dev",
		Log:     Log{Level: "info"},
		HTTP: HTTP{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Auth:    Auth{Issuer: "storefront", TokenTTL: 24 * time.Hour},
		Storage: Storage{Driver: "memory"},
		Postgres: Postgres{
			MaxConns:        10,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
		},
		Redis:    Redis{CacheTTL: 30 * time.Second, CartTTL: 7 * 24 * time.Hour},
		RabbitMQ: RabbitMQ{Exchange: "storefront.events"},
		Outbox:   Outbox{QueueSize: 1024, Concurrency: 8, HandlerTimeout: 30 * time.Second},
	}
}

// Load layers the defaults, the YAML file at path (optional), a .env file (optional)
// and STOREFRONT_* environment variables, then validates the result.
func Load(path, dotenv string) (Config, error) {
	cfg, err := Read(path, dotenv)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read is Load without validation, for commands that only need a subset (migrate).
func Read(path, dotenv string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", dotenv, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c *Config) Validate() error {
	c.Postgres.Enabled = c.Storage.Driver == "postgres"
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

// applyEnv overrides fields from STOREFRONT_<NAME> variables.
func applyEnv(c *Config, lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	var errs []error
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(envPrefix + name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(envPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(envPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s%s: %w", envPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("SERVICE", &c.Service)
	str("ENV", &c.Env)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)
	str("HTTP_ADDR", &c.HTTP.Addr)
	dur("HTTP_SHUTDOWN_TIMEOUT", &c.HTTP.ShutdownTimeout)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("JWT_ISSUER", &c.Auth.Issuer)
	dur("TOKEN_TTL", &c.Auth.TokenTTL)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("POSTGRES_DSN", &c.Postgres.DSN)
	flag("POSTGRES_AUTO_MIGRATE", &c.Postgres.AutoMigrate)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	num("REDIS_DB", &c.Redis.DB)
	dur("REDIS_CACHE_TTL", &c.Redis.CacheTTL)
	str("RABBITMQ_URL", &c.RabbitMQ.URL)
	str("RABBITMQ_EXCHANGE", &c.RabbitMQ.Exchange)
	str("PAYMENT_WEBHOOK_SECRET", &c.Payment.WebhookSecret)
	num("OUTBOX_CONCURRENCY", &c.Outbox.Concurrency)

	return errors.Join(errs...)
}
