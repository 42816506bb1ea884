// Package database provides PostgreSQL connection management with lifecycle coordination.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/bugcrowd-triage/pkg/lifecycle"
)

// System manages database connections and lifecycle coordination.
type System interface {
	// Connection returns the underlying database connection pool.
	Connection() *sql.DB
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
}

// Option configures optional database behavior.
type Option func(*database)

// WithMigrations applies the migrations found in dir of fsys once the
// connection is established. It only takes effect when auto_migrate is enabled.
func WithMigrations(fsys fs.FS, dir string) Option {
	return func(d *database) {
		d.migrations = fsys
		d.migrationsDir = dir
	}
}

type database struct {
	conn          *sql.DB
	logger        *slog.Logger
	url           string
	connTimeout   time.Duration
	retries       int
	retryInterval time.Duration
	autoMigrate   bool
	migrations    fs.FS
	migrationsDir string
}

// New creates a database system with the given configuration.
// It calls sql.Open to validate the DSN and configure pool parameters,
// but does not establish a connection until Start is called.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (System, error) {
	db, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	d := &database{
		conn:          db,
		logger:        logger.With("system", "database"),
		url:           cfg.URL(),
		connTimeout:   cfg.ConnTimeoutDuration(),
		retries:       cfg.ConnRetries,
		retryInterval: cfg.ConnRetryIntervalDuration(),
		autoMigrate:   cfg.AutoMigrate,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("starting database connection")

	lc.OnStartup(func() error {
		if err := d.connect(lc.Context()); err != nil {
			d.logger.Error("database connection failed", "error", err)
			return fmt.Errorf("database: %w", err)
		}

		d.logger.Info("database connection established")

		if !d.autoMigrate || d.migrations == nil {
			return nil
		}

		version, err := Migrate(d.migrations, d.migrationsDir, d.url)
		if err != nil {
			d.logger.Error("database migration failed", "error", err)
			return fmt.Errorf("database: %w", err)
		}

		d.logger.Info("database schema ready", "version", version)
		return nil
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		d.logger.Info("closing database connection")

		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}

		d.logger.Info("database connection closed")
	})

	return nil
}

// connect pings the database, retrying at a constant interval.
func (d *database) connect(ctx context.Context) error {
	bo := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewConstantBackOff(d.retryInterval),
			uint64(d.retries),
		),
		ctx,
	)

	attempt := 0
	return backoff.RetryNotify(
		func() error {
			attempt++
			pingCtx, cancel := context.WithTimeout(ctx, d.connTimeout)
			defer cancel()
			return d.conn.PingContext(pingCtx)
		},
		bo,
		func(err error, wait time.Duration) {
			d.logger.Warn(
				"database ping failed, retrying",
				"attempt", attempt,
				"max_attempts", d.retries+1,
				"retry_in", wait,
				"error", err,
			)
		},
	)
}
