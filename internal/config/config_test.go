package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.ListenAddr != "127.0.0.1:8080" {
		t.Errorf("Server.ListenAddr = %q, want 127.0.0.1:8080", cfg.Server.ListenAddr)
	}
	if cfg.Server.BaseURL != "http://127.0.0.1:8080" {
		t.Errorf("Server.BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.MaxUploadMB != 20 {
		t.Errorf("Server.MaxUploadMB = %d, want 20", cfg.Server.MaxUploadMB)
	}
	if cfg.Export.JPEGQuality != 90 {
		t.Errorf("Export.JPEGQuality = %d, want 90", cfg.Export.JPEGQuality)
	}

	// Strava config should be empty by default
	if cfg.Strava.ClientID != "" {
		t.Errorf("Strava.ClientID should be empty, got %q", cfg.Strava.ClientID)
	}
	if cfg.Strava.ClientSecret != "" {
		t.Errorf("Strava.ClientSecret should be empty, got %q", cfg.Strava.ClientSecret)
	}
}

func validStrava() StravaConfig {
	return StravaConfig{ClientID: "12345", ClientSecret: "abc123secret"}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
		errContains string
	}{
		{
			name:        "valid config",
			config:      Config{Strava: validStrava()},
			expectError: false,
		},
		{
			name: "empty client ID",
			config: Config{
				Strava: StravaConfig{ClientID: "", ClientSecret: "abc123secret"},
			},
			expectError: true,
			errContains: "client_id",
		},
		{
			name: "placeholder client ID",
			config: Config{
				Strava: StravaConfig{ClientID: "YOUR_CLIENT_ID", ClientSecret: "abc123secret"},
			},
			expectError: true,
			errContains: "client_id",
		},
		{
			name: "empty client secret",
			config: Config{
				Strava: StravaConfig{ClientID: "12345", ClientSecret: ""},
			},
			expectError: true,
			errContains: "client_secret",
		},
		{
			name: "placeholder client secret",
			config: Config{
				Strava: StravaConfig{ClientID: "12345", ClientSecret: "YOUR_CLIENT_SECRET"},
			},
			expectError: true,
			errContains: "client_secret",
		},
		{
			name: "listen addr without port",
			config: Config{
				Strava: validStrava(),
				Server: ServerConfig{ListenAddr: "localhost"},
			},
			expectError: true,
			errContains: "listen_addr",
		},
		{
			name: "base url without scheme",
			config: Config{
				Strava: validStrava(),
				Server: ServerConfig{BaseURL: "localhost:8080"},
			},
			expectError: true,
			errContains: "base_url",
		},
		{
			name: "base url wrong scheme",
			config: Config{
				Strava: validStrava(),
				Server: ServerConfig{BaseURL: "ftp://example.com"},
			},
			expectError: true,
			errContains: "base_url",
		},
		{
			name: "jpeg quality out of range",
			config: Config{
				Strava: validStrava(),
				Export: ExportConfig{JPEGQuality: 150},
			},
			expectError: true,
			errContains: "jpeg_quality",
		},
		{
			name: "negative upload cap",
			config: Config{
				Strava: validStrava(),
				Server: ServerConfig{MaxUploadMB: -1},
			},
			expectError: true,
			errContains: "max_upload_mb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.expectError {
				if err == nil {
					t.Error("expected error, got nil")
				} else if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q should contain %q", err.Error(), tt.errContains)
				}
			} else {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestLoadMissingConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if _, err := Load(); !errors.Is(err, ErrNoConfig) {
		t.Fatalf("Load = %v, want ErrNoConfig", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	want := DefaultConfig()
	want.Strava = validStrava()
	want.Server.DatabasePath = "/tmp/custom.db"
	if err := Save(&want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != want {
		t.Errorf("round trip = %+v, want %+v", *got, want)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	// A config that only sets credentials.
	dir := filepath.Join(home, ".statshot")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	partial := `{"strava":{"client_id":"12345","client_secret":"abc123secret"}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(partial), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != "127.0.0.1:8080" {
		t.Errorf("ListenAddr = %q, want the default", cfg.Server.ListenAddr)
	}
	if cfg.Server.MaxUploadMB != 20 {
		t.Errorf("MaxUploadMB = %d, want the default", cfg.Server.MaxUploadMB)
	}
	if cfg.Export.JPEGQuality != 90 {
		t.Errorf("JPEGQuality = %d, want the default", cfg.Export.JPEGQuality)
	}
	if cfg.Strava.ClientID != "12345" {
		t.Errorf("ClientID = %q lost on load", cfg.Strava.ClientID)
	}
}

func TestCreateExampleDoesNotOverwrite(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := CreateExample(); err != nil {
		t.Fatalf("CreateExample: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load after CreateExample: %v", err)
	}
	if cfg.Strava.ClientID != "YOUR_CLIENT_ID" {
		t.Errorf("example ClientID = %q", cfg.Strava.ClientID)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("example config validated, placeholders should be rejected")
	}

	// A real config must survive a second CreateExample.
	cfg.Strava = validStrava()
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := CreateExample(); err != nil {
		t.Fatalf("second CreateExample: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Strava.ClientID != "12345" {
		t.Errorf("CreateExample overwrote real config, ClientID = %q", got.Strava.ClientID)
	}
}
