package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the API process.
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development"`
	Port   string `envconfig:"PORT" default:"8080"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBPort      string `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER" default:"postgres"`
	DBPassword  string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName      string `envconfig:"DB_NAME" default:"delivops"`
	DBSSLMode   string `envconfig:"DB_SSLMODE" default:"disable"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	TenantHeader string `envconfig:"TENANT_HEADER" default:"X-Tenant-Id"`
	DevFakeAuth  bool   `envconfig:"DEV_FAKE_AUTH" default:"false"`

	AuthJWKSURL    string        `envconfig:"AUTH_JWKS_URL"`
	AuthAudience   string        `envconfig:"AUTH_AUDIENCE"`
	AuthIssuer     string        `envconfig:"AUTH_ISSUER"`
	AuthAlgorithms []string      `envconfig:"AUTH_ALGORITHMS" default:"RS256"`
	JWTSecret      string        `envconfig:"JWT_SECRET"`
	JWKSTTL        time.Duration `envconfig:"JWKS_TTL" default:"1h"`

	CORSAllowOrigins []string `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`

	ActivationURL string `envconfig:"ACTIVATION_URL" default:"http://localhost:3000/activate"`

	SwaggerEnabled bool `envconfig:"SWAGGER_ENABLED" default:"false"`
}

// Load reads configs/.env when present, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.TenantHeader == "" {
		return errors.New("tenant header name must not be empty")
	}
	if c.DevFakeAuth && c.IsProduction() {
		return errors.New("dev fake auth cannot be enabled in production")
	}
	if !c.DevFakeAuth && c.AuthJWKSURL == "" && c.JWTSecret == "" {
		return errors.New("either AUTH_JWKS_URL or JWT_SECRET must be set when DEV_FAKE_AUTH is disabled")
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// DSN returns DATABASE_URL when set, otherwise a DSN assembled from the DB_* fields.
func (c *Config) DSN() string {
	if strings.TrimSpace(c.DatabaseURL) != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return u.String()
}
