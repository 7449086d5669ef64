// Package config loads WodStrat settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config struct to hold the configuration settings
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Auth      AuthConfig      `yaml:"auth"`
	Gate      GateConfig      `yaml:"gate"`
	Client    ClientConfig    `yaml:"client"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// DatabaseConfig selects the bun dialect and connection.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite|postgres
	DSN    string `yaml:"dsn"`
	Debug  bool   `yaml:"debug"`
}

// JWTConfig holds token issuing settings.
type JWTConfig struct {
	Secret  string        `yaml:"secret"`
	TTL     time.Duration `yaml:"ttl"`
	Issuer  string        `yaml:"issuer"`
	JWKSURL string        `yaml:"jwks_url"`
}

// AuthConfig holds account password settings.
type AuthConfig struct {
	PasswordCost int `yaml:"password_cost"`
}

// GateConfig holds the route gate redirect targets.
type GateConfig struct {
	ProfileSetupPath string `yaml:"profile_setup_path"`
	ProfileHomePath  string `yaml:"profile_home_path"`
}

// ClientConfig is used by the CLI session commands.
type ClientConfig struct {
	BaseURL   string `yaml:"base_url"`
	TokenPath string `yaml:"token_path"`
}

// RateLimitConfig applies to the login endpoint, per client IP.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Defaults returns a working local configuration
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Database: DatabaseConfig{
			Driver: DriverSQLite,
			DSN:    "file:wodstrat.db?cache=shared",
		},
		JWT: JWTConfig{
			TTL:    24 * time.Hour,
			Issuer: "wodstrat",
		},
		Auth: AuthConfig{
			PasswordCost: 12,
		},
		Gate: GateConfig{
			ProfileSetupPath: "/profile/new",
			ProfileHomePath:  "/profile",
		},
		Client: ClientConfig{
			BaseURL:   "http://localhost:8080",
			TokenPath: defaultTokenPath(),
		},
		RateLimit: RateLimitConfig{
			RPS:   1,
			Burst: 5,
		},
	}
}

// LoadConfig loads the configuration from a YAML file. A missing file falls
// back to defaults plus environment variables.
func LoadConfig(filename string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(filename)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("WODSTRAT_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("WODSTRAT_CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("WODSTRAT_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("WODSTRAT_DB_DEBUG"); v != "" {
		c.Database.Debug = v == "true" || v == "1"
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("JWT_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid JWT_TTL: %w", err)
		}
		c.JWT.TTL = ttl
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		c.JWT.Issuer = v
	}
	if v := os.Getenv("JWKS_URL"); v != "" {
		c.JWT.JWKSURL = v
	}
	if v := os.Getenv("WODSTRAT_PASSWORD_COST"); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid WODSTRAT_PASSWORD_COST: %w", err)
		}
		c.Auth.PasswordCost = cost
	}
	if v := os.Getenv("WODSTRAT_API_URL"); v != "" {
		c.Client.BaseURL = v
	}
	if v := os.Getenv("WODSTRAT_TOKEN_PATH"); v != "" {
		c.Client.TokenPath = v
	}
	if v := os.Getenv("WODSTRAT_LOGIN_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid WODSTRAT_LOGIN_RPS: %w", err)
		}
		c.RateLimit.RPS = rps
	}
	if v := os.Getenv("WODSTRAT_LOGIN_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid WODSTRAT_LOGIN_BURST: %w", err)
		}
		c.RateLimit.Burst = burst
	}
	return nil
}

// Validate checks the settings the API server needs
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}

	if c.JWT.TTL < 0 {
		errs = append(errs, errors.New("jwt.ttl must not be negative"))
	}

	return errors.Join(errs...)
}

// GetSigningKey satisfies wodstrat.Config
func (c *Config) GetSigningKey() string {
	return c.JWT.Secret
}

// GetTokenTTL satisfies wodstrat.Config
func (c *Config) GetTokenTTL() time.Duration {
	return c.JWT.TTL
}

// GetIssuer satisfies wodstrat.Config
func (c *Config) GetIssuer() string {
	return c.JWT.Issuer
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultTokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ".wodstrat-token"
	}
	return dir + string(os.PathSeparator) + "wodstrat" + string(os.PathSeparator) + "token"
}
