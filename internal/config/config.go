package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	// DefaultPath is where the config file is looked for and created.
	DefaultPath = "./config.toml"

	// PlaceholderAuthenticationKey is written to new config files and must be
	// replaced before the proxy will start.
	PlaceholderAuthenticationKey = "arbnco_auth_key_goes_here"

	placeholderSiteID = "site_id_goes_here"
)

// ErrPlaceholderKey is returned by Load when authentication_key was never filled in.
var ErrPlaceholderKey = errors.New("config: authentication_key is still the placeholder value")

var validate = validator.New()

// Duration is a time.Duration written as a string ("5s") in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// ProxyConfig is loaded once at startup and never changes afterwards.
type ProxyConfig struct {
	Port              int    `toml:"port" validate:"min=1,max=65535"`
	AuthenticationKey string `toml:"authentication_key" validate:"required"`
	SiteID            string `toml:"site_id" validate:"required"`
	HTTPAuthUsername  string `toml:"http_auth_username" validate:"required"`
	HTTPAuthPassword  string `toml:"http_auth_password" validate:"required,min=8"`

	// Base URL of the ARBNCO API.
	UpstreamURL string `toml:"upstream_url" validate:"required,url"`
	// Timeout of a single upstream call.
	UpstreamTimeout Duration `toml:"upstream_timeout"`
	// How often the reading is refreshed in the background (0 disables it).
	WarmInterval Duration `toml:"warm_interval"`
	// Max refreshed readings kept for /history.
	HistorySize int `toml:"history_size" validate:"min=0"`
}

// Default returns the configuration written to a new config file. The Basic
// Auth password is random for every call.
func Default() ProxyConfig {
	return ProxyConfig{
		Port:              4000,
		AuthenticationKey: PlaceholderAuthenticationKey,
		SiteID:            placeholderSiteID,
		HTTPAuthUsername:  "openhab",
		HTTPAuthPassword:  generatePassword(),
		UpstreamURL:       "https://well.arbnco.com",
		UpstreamTimeout:   Duration{5 * time.Second},
		WarmInterval:      Duration{0},
		HistorySize:       120,
	}
}

func generatePassword() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

// Load reads the TOML config at path, creating it with defaults if it does not
// exist, then applies ARBNCO_* environment overrides (a .env file is honoured)
// and validates the result.
func Load(path string) (*ProxyConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := write(path, cfg); err != nil {
			return nil, err
		}
		log.Printf("INFO: created default config at %s", path)
	} else if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to decode %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	if cfg.UpstreamTimeout.Duration <= 0 {
		return nil, fmt.Errorf("config: upstream_timeout must be positive")
	}
	if cfg.WarmInterval.Duration < 0 {
		return nil, fmt.Errorf("config: warm_interval must not be negative")
	}

	if cfg.AuthenticationKey == PlaceholderAuthenticationKey {
		return &cfg, ErrPlaceholderKey
	}

	return &cfg, nil
}

func write(path string, cfg ProxyConfig) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: failed to write %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *ProxyConfig) error {
	if v := os.Getenv("ARBNCO_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ARBNCO_PORT: %w", err)
		}
		cfg.Port = port
	}

	cfg.AuthenticationKey = getenvDefault("ARBNCO_AUTHENTICATION_KEY", cfg.AuthenticationKey)
	cfg.SiteID = getenvDefault("ARBNCO_SITE_ID", cfg.SiteID)
	cfg.HTTPAuthUsername = getenvDefault("ARBNCO_HTTP_AUTH_USERNAME", cfg.HTTPAuthUsername)
	cfg.HTTPAuthPassword = getenvDefault("ARBNCO_HTTP_AUTH_PASSWORD", cfg.HTTPAuthPassword)
	cfg.UpstreamURL = getenvDefault("ARBNCO_UPSTREAM_URL", cfg.UpstreamURL)

	for key, dst := range map[string]*Duration{
		"ARBNCO_UPSTREAM_TIMEOUT": &cfg.UpstreamTimeout,
		"ARBNCO_WARM_INTERVAL":    &cfg.WarmInterval,
	} {
		if v := os.Getenv(key); v != "" {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("invalid %s: %w", key, err)
			}
		}
	}

	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
