package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// MemoryDatabaseURL selects the in-process store instead of Postgres.
const MemoryDatabaseURL = "memory://"

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	JWTSecret        string        `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer        string        `envconfig:"JWT_ISSUER" default:"community-site"`
	JWTTTL           time.Duration `envconfig:"JWT_TTL" default:"720h"`
	CookieName       string        `envconfig:"COOKIE_NAME" default:"jwt"`
	CookieSecure     bool          `envconfig:"COOKIE_SECURE" default:"true"`
	AllowAdminSignup bool          `envconfig:"ALLOW_ADMIN_SIGNUP" default:"false"`

	CORSOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`

	MaxUploadBytes int64         `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
	UploadTimeout  time.Duration `envconfig:"UPLOAD_TIMEOUT" default:"30s"`
	S3             S3Config      `envconfig:"S3"`

	RabbitURL      string `envconfig:"RABBIT_URL"`
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"site.content"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Environment  string `envconfig:"ENV" default:"dev"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// S3Config points the upload delegate at an S3-compatible media host.
// Keys are read with the S3_ prefix, e.g. S3_ENDPOINT.
type S3Config struct {
	Endpoint      string `envconfig:"ENDPOINT"`
	Region        string `envconfig:"REGION" default:"us-east-1"`
	Bucket        string `envconfig:"BUCKET" default:"site-media"`
	AccessKey     string `envconfig:"ACCESS_KEY"`
	SecretKey     string `envconfig:"SECRET_KEY"`
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL"`
	UsePathStyle  bool   `envconfig:"PATH_STYLE" default:"true"`
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.JWTSecret = strings.TrimSpace(c.JWTSecret)
	c.CORSOrigins = trimAll(c.CORSOrigins)

	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.UploadTimeout <= 0 {
		return errors.New("UPLOAD_TIMEOUT must be positive")
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	return nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

// UsesMemoryStore reports whether persistence should stay in-process.
func (c Config) UsesMemoryStore() bool {
	return c.DatabaseURL == MemoryDatabaseURL
}

func trimAll(in []string) []string {
	var out []string
	for _, part := range in {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
