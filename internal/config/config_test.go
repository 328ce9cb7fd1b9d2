package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const validConfig = `
port = 4100
authentication_key = "real-key"
site_id = "site-42"
http_auth_username = "openhab"
http_auth_password = "correct-horse-battery"
upstream_timeout = "3s"
warm_interval = "1m"
`

func TestLoad_CreatesDefaultFileAndRefusesPlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := Load(path)
	if !errors.Is(err, ErrPlaceholderKey) {
		t.Fatalf("expected ErrPlaceholderKey, got %v", err)
	}
	if cfg == nil || cfg.AuthenticationKey != PlaceholderAuthenticationKey {
		t.Fatalf("expected defaults to be returned with the error, got %+v", cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected default config to be written: %v", err)
	}
	body := string(data)
	for _, want := range []string{"authentication_key", PlaceholderAuthenticationKey, "http_auth_password", "port = 4000"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected written config to contain %q:\n%s", want, body)
		}
	}

	// A second load reads the same generated password back.
	again, err := Load(path)
	if !errors.Is(err, ErrPlaceholderKey) {
		t.Fatalf("expected ErrPlaceholderKey, got %v", err)
	}
	if again.HTTPAuthPassword != cfg.HTTPAuthPassword {
		t.Fatalf("expected persisted password %q, got %q", cfg.HTTPAuthPassword, again.HTTPAuthPassword)
	}
}

func TestLoad_Valid(t *testing.T) {
	cfg, err := Load(writeFile(t, validConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 4100 || cfg.SiteID != "site-42" || cfg.AuthenticationKey != "real-key" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.UpstreamTimeout.Duration != 3*time.Second {
		t.Fatalf("expected 3s upstream timeout, got %s", cfg.UpstreamTimeout)
	}
	if cfg.WarmInterval.Duration != time.Minute {
		t.Fatalf("expected 1m warm interval, got %s", cfg.WarmInterval)
	}
	// Fields absent from the file keep their defaults.
	if cfg.UpstreamURL != "https://well.arbnco.com" || cfg.HistorySize != 120 {
		t.Fatalf("expected defaults for unset fields, got %+v", cfg)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ARBNCO_PORT", "5000")
	t.Setenv("ARBNCO_SITE_ID", "from-env")
	t.Setenv("ARBNCO_UPSTREAM_TIMEOUT", "7s")

	cfg, err := Load(writeFile(t, validConfig))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 5000 || cfg.SiteID != "from-env" || cfg.UpstreamTimeout.Duration != 7*time.Second {
		t.Fatalf("expected env overrides to apply, got %+v", cfg)
	}
}

func TestLoad_EnvReplacesPlaceholderKey(t *testing.T) {
	t.Setenv("ARBNCO_AUTHENTICATION_KEY", "env-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AuthenticationKey != "env-key" {
		t.Fatalf("expected env key, got %q", cfg.AuthenticationKey)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unparsable", "port = = 1"},
		{"port out of range", strings.Replace(validConfig, "port = 4100", "port = 70000", 1)},
		{"empty site id", strings.Replace(validConfig, `site_id = "site-42"`, `site_id = ""`, 1)},
		{"bad duration", strings.Replace(validConfig, `upstream_timeout = "3s"`, `upstream_timeout = "soon"`, 1)},
		{"zero timeout", strings.Replace(validConfig, `upstream_timeout = "3s"`, `upstream_timeout = "0s"`, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, ErrPlaceholderKey) {
				t.Fatalf("expected a validation error, got %v", err)
			}
		})
	}
}

func TestDefault_GeneratesPassword(t *testing.T) {
	a, b := Default(), Default()
	if len(a.HTTPAuthPassword) != 24 {
		t.Fatalf("expected 24 character password, got %q", a.HTTPAuthPassword)
	}
	if a.HTTPAuthPassword == b.HTTPAuthPassword {
		t.Fatal("expected a new password for every default config")
	}
}
