// Package infrastructure assembles the process-wide systems the bot depends on:
// lifecycle coordination, logging and the database.
package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JaimeStill/bugcrowd-triage/internal/config"
	"github.com/JaimeStill/bugcrowd-triage/migrations"
	"github.com/JaimeStill/bugcrowd-triage/pkg/database"
	"github.com/JaimeStill/bugcrowd-triage/pkg/lifecycle"
)

// Infrastructure holds the core systems shared by the domain packages.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
}

// New creates an Infrastructure from the application configuration. The
// lifecycle context derives from ctx. Systems are initialized but not started.
func New(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	return NewWithWriter(ctx, cfg, os.Stderr)
}

// NewWithWriter is New with the log output directed to w.
func NewWithWriter(ctx context.Context, cfg *config.Config, w io.Writer) (*Infrastructure, error) {
	lc := lifecycle.New(ctx)
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level()}))

	db, err := database.New(
		&cfg.Database,
		logger,
		database.WithMigrations(migrations.FS, migrations.Dir),
	)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	return nil
}
