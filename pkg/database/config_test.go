package database_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/JaimeStill/bugcrowd-triage/pkg/database"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := database.Config{Name: "triage", User: "triage"}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"host", cfg.Host, "localhost"},
		{"port", cfg.Port, 5432},
		{"ssl_mode", cfg.SSLMode, "disable"},
		{"max_open_conns", cfg.MaxOpenConns, 5},
		{"max_idle_conns", cfg.MaxIdleConns, 2},
		{"conn_max_lifetime", cfg.ConnMaxLifetime, "15m"},
		{"conn_timeout", cfg.ConnTimeout, "5s"},
		{"conn_retries", cfg.ConnRetries, 5},
		{"conn_retry_interval", cfg.ConnRetryInterval, "5s"},
		{"auto_migrate", cfg.AutoMigrate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "remotehost")
	t.Setenv("TEST_DB_PORT", "5433")
	t.Setenv("TEST_DB_NAME", "envdb")
	t.Setenv("TEST_DB_USER", "envuser")
	t.Setenv("TEST_DB_PASSWORD", "envpass")
	t.Setenv("TEST_DB_SSL_MODE", "require")
	t.Setenv("TEST_DB_RETRIES", "2")
	t.Setenv("TEST_DB_RETRY_INTERVAL", "1s")
	t.Setenv("TEST_DB_AUTO_MIGRATE", "true")

	env := &database.Env{
		Host:              "TEST_DB_HOST",
		Port:              "TEST_DB_PORT",
		Name:              "TEST_DB_NAME",
		User:              "TEST_DB_USER",
		Password:          "TEST_DB_PASSWORD",
		SSLMode:           "TEST_DB_SSL_MODE",
		ConnRetries:       "TEST_DB_RETRIES",
		ConnRetryInterval: "TEST_DB_RETRY_INTERVAL",
		AutoMigrate:       "TEST_DB_AUTO_MIGRATE",
	}

	cfg := database.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	tests := []struct {
		name     string
		got      any
		expected any
	}{
		{"host", cfg.Host, "remotehost"},
		{"port", cfg.Port, 5433},
		{"name", cfg.Name, "envdb"},
		{"user", cfg.User, "envuser"},
		{"password", cfg.Password, "envpass"},
		{"ssl_mode", cfg.SSLMode, "require"},
		{"conn_retries", cfg.ConnRetries, 2},
		{"conn_retry_interval", cfg.ConnRetryInterval, "1s"},
		{"auto_migrate", cfg.AutoMigrate, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("got %v, want %v", tt.got, tt.expected)
			}
		})
	}
}

func TestFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     database.Config
		wantErr string
	}{
		{
			name:    "missing name",
			cfg:     database.Config{User: "triage"},
			wantErr: "name required",
		},
		{
			name:    "missing user",
			cfg:     database.Config{Name: "triage"},
			wantErr: "user required",
		},
		{
			name:    "negative retries",
			cfg:     database.Config{Name: "triage", User: "triage", ConnRetries: -1},
			wantErr: "conn_retries",
		},
		{
			name:    "invalid conn_timeout",
			cfg:     database.Config{Name: "triage", User: "triage", ConnTimeout: "bad"},
			wantErr: "invalid conn_timeout",
		},
		{
			name:    "invalid conn_retry_interval",
			cfg:     database.Config{Name: "triage", User: "triage", ConnRetryInterval: "soon"},
			wantErr: "invalid conn_retry_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := database.Config{
		Host: "localhost",
		Port: 5432,
		Name: "basedb",
		User: "baseuser",
	}

	overlay := database.Config{
		Host:        "remotehost",
		Name:        "overlaydb",
		AutoMigrate: true,
	}

	base.Merge(&overlay)

	if base.Host != "remotehost" {
		t.Errorf("host: got %s, want remotehost", base.Host)
	}
	if base.Port != 5432 {
		t.Errorf("port: got %d, want 5432", base.Port)
	}
	if base.Name != "overlaydb" {
		t.Errorf("name: got %s, want overlaydb", base.Name)
	}
	if base.User != "baseuser" {
		t.Errorf("user: got %s, want baseuser", base.User)
	}
	if !base.AutoMigrate {
		t.Error("auto_migrate should be enabled by overlay")
	}
}

func TestURL(t *testing.T) {
	cfg := database.Config{
		Host:     "db.internal",
		Port:     5433,
		Name:     "triage",
		User:     "bot",
		Password: "p@ss/word",
		SSLMode:  "require",
	}

	u, err := url.Parse(cfg.URL())
	if err != nil {
		t.Fatalf("parse URL: %v", err)
	}

	if u.Scheme != "postgres" {
		t.Errorf("scheme = %q, want postgres", u.Scheme)
	}
	if u.Host != "db.internal:5433" {
		t.Errorf("host = %q, want db.internal:5433", u.Host)
	}
	if u.Path != "/triage" {
		t.Errorf("path = %q, want /triage", u.Path)
	}
	if pw, _ := u.User.Password(); pw != "p@ss/word" {
		t.Errorf("password = %q, want p@ss/word", pw)
	}
	if got := u.Query().Get("sslmode"); got != "require" {
		t.Errorf("sslmode = %q, want require", got)
	}
}
