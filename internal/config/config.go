package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/turdes/auth/internal/core/domain"
)

// Config holds runtime configuration for the auth service.
type Config struct {
	Addr               string        `env:"ADDR,default=:8080"`
	JWTSecret          string        `env:"JWT_SECRET,required"`
	JWTIssuer          string        `env:"JWT_ISSUER,default=turdes-auth"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL,default=15m"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL,default=168h"`
	RotateRefreshToken bool          `env:"REFRESH_TOKEN_ROTATION,default=false"`
	AutoMigrate        bool          `env:"AUTO_MIGRATE,default=true"`
	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID"`
	NATSURL            string        `env:"NATS_URL"`
	OTLPEndpoint       string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins     []string      `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE,default=100"`
	LogLevel           string        `env:"LOG_LEVEL,default=info"`
	LogFormat          string        `env:"LOG_FORMAT,default=console"`

	DatabaseConfig
}

// DatabaseConfig is the subset of Config needed to reach Postgres.
type DatabaseConfig struct {
	DatabaseURL string         `env:"DATABASE_URL"`
	Postgres    PostgresConfig `env:",prefix=POSTGRES_"`
}

type PostgresConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	DB       string `env:"DB"`
}

// Load returns a validated Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

// LoadFromMap is Load with variables taken from m instead of the process environment.
func LoadFromMap(ctx context.Context, m map[string]string) (Config, error) {
	return load(ctx, envconfig.MapLookuper(m))
}

// LoadDatabase reads only the database settings, for tools that do not serve requests.
func LoadDatabase(ctx context.Context) (DatabaseConfig, error) {
	var cfg DatabaseConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return DatabaseConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return DatabaseConfig{}, err
	}
	return cfg, nil
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET: %w", domain.ErrEmptySecret)
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("ACCESS_TOKEN_TTL must be positive")
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		return errors.New("REFRESH_TOKEN_TTL must be longer than ACCESS_TOKEN_TTL")
	}
	if err := c.DatabaseConfig.Validate(); err != nil {
		return err
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must not be negative")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	return nil
}

func (c DatabaseConfig) Validate() error {
	if c.DatabaseURL == "" && c.Postgres.DB == "" {
		return errors.New("either DATABASE_URL or POSTGRES_DB must be set")
	}
	return nil
}

// DSN returns DATABASE_URL when set, otherwise a URL built from the POSTGRES_* variables.
func (c DatabaseConfig) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Postgres.User, c.Postgres.Password),
		Host:     net.JoinHostPort(c.Postgres.Host, c.Postgres.Port),
		Path:     "/" + c.Postgres.DB,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
