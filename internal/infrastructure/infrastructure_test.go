package infrastructure_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/bugcrowd-triage/internal/config"
	"github.com/JaimeStill/bugcrowd-triage/internal/infrastructure"
	"github.com/JaimeStill/bugcrowd-triage/pkg/database"
)

func TestNewHonorsLogLevel(t *testing.T) {
	cfg := &config.Config{
		LogLevel: "warn",
		Database: database.Config{
			Host:              "127.0.0.1",
			Port:              1,
			Name:              "triage",
			User:              "triage",
			SSLMode:           "disable",
			MaxOpenConns:      1,
			MaxIdleConns:      1,
			ConnMaxLifetime:   "1m",
			ConnTimeout:       "50ms",
			ConnRetries:       0,
			ConnRetryInterval: "10ms",
		},
	}

	var buf bytes.Buffer
	infra, err := infrastructure.NewWithWriter(context.Background(), cfg, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	infra.Logger.Info("hidden")
	infra.Logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("log output = %q", out)
	}

	if err := infra.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := infra.Lifecycle.WaitForStartup(); err == nil {
		t.Error("WaitForStartup() should fail for an unreachable database")
	}
	if err := infra.Lifecycle.Shutdown(time.Second); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
