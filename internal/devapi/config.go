package devapi

import (
	"errors"
	"fmt"
	"os"
	"time"
)

var ErrNoSecret = errors.New("DEVAPI_JWT_SECRET must be set")

// Config holds devapi settings, read from the environment.
type Config struct {
	Addr      string
	JWTSecret string
	TokenTTL  time.Duration
}

func (c *Config) LoadDefaults() {
	c.Addr = "127.0.0.1:8000"
	c.TokenTTL = 30 * time.Minute
}

// LoadConfig reads DEVAPI_ADDR, DEVAPI_JWT_SECRET and DEVAPI_TOKEN_TTL over
// the defaults. The secret has no default.
func LoadConfig() (*Config, error) {
	return loadConfig(os.Getenv)
}

func loadConfig(getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if v := getenv("DEVAPI_ADDR"); v != "" {
		cfg.Addr = v
	}
	cfg.JWTSecret = getenv("DEVAPI_JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, ErrNoSecret
	}
	if v := getenv("DEVAPI_TOKEN_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("DEVAPI_TOKEN_TTL: %w", err)
		}
		if ttl <= 0 {
			return nil, fmt.Errorf("DEVAPI_TOKEN_TTL: must be positive, got %s", ttl)
		}
		cfg.TokenTTL = ttl
	}
	return cfg, nil
}
