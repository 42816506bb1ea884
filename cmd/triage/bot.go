package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/bugcrowd-triage/internal/classifier"
	"github.com/JaimeStill/bugcrowd-triage/internal/config"
	"github.com/JaimeStill/bugcrowd-triage/internal/health"
	"github.com/JaimeStill/bugcrowd-triage/internal/infrastructure"
	"github.com/JaimeStill/bugcrowd-triage/internal/submissions"
	"github.com/JaimeStill/bugcrowd-triage/internal/tracker"
	"github.com/JaimeStill/bugcrowd-triage/internal/triage"
)

type bot struct {
	infra           *infrastructure.Infrastructure
	scheduler       *triage.Scheduler
	health          *health.Server
	shutdownTimeout time.Duration
}

func newBot(ctx context.Context, cfg *config.Config) (*bot, error) {
	infra, err := infrastructure.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	set, err := cfg.Categories.Set()
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}

	engine := triage.NewEngine(
		triage.Options{
			Program:    cfg.Tracker.Program,
			AssigneeID: cfg.Tracker.AssigneeID,
		},
		tracker.New(&cfg.Tracker, infra.Logger),
		classifier.New(&cfg.Classifier, set, infra.Logger),
		submissions.New(infra.Database.Connection(), infra.Logger),
		set,
		infra.Logger,
	)

	b := &bot{
		infra:           infra,
		scheduler:       triage.NewScheduler(engine, cfg.IntervalDuration(), infra.Logger),
		shutdownTimeout: cfg.ShutdownTimeoutDuration(),
	}

	if cfg.Server.Enabled {
		b.health = health.New(&cfg.Server, infra.Lifecycle, infra.Logger)
	}

	infra.Logger.Info(
		"triage bot initialized",
		"version", cfg.Version,
		"env", cfg.Env(),
		"program", cfg.Tracker.Program,
		"interval", cfg.IntervalDuration(),
		"categories", len(set.Valid()),
		"response_categories", len(set.ResponseCategories()),
	)

	return b, nil
}

// run starts the probe server (when enabled) and infrastructure, waits for
// startup, then runs the scheduler until the lifecycle context ends. With
// once set, a single cycle runs instead of the loop.
func (b *bot) run(once bool) error {
	defer b.shutdown()

	ctx, cancel := context.WithCancel(b.infra.Lifecycle.Context())
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if b.health != nil {
		g.Go(func() error {
			return b.health.Run(gctx)
		})
	}

	if err := b.start(); err != nil {
		cancel()
		_ = g.Wait()
		return err
	}
	b.infra.Logger.Info("all subsystems ready")

	if once {
		b.scheduler.RunOnce(gctx)
		cancel()
		return g.Wait()
	}

	g.Go(func() error {
		return b.scheduler.Run(gctx)
	})

	return g.Wait()
}

func (b *bot) start() error {
	if err := b.infra.Start(); err != nil {
		return err
	}
	return b.infra.Lifecycle.WaitForStartup()
}

func (b *bot) shutdown() {
	b.infra.Logger.Info("initiating shutdown")
	if err := b.infra.Lifecycle.Shutdown(b.shutdownTimeout); err != nil {
		b.infra.Logger.Error("shutdown incomplete", "error", err)
		return
	}
	b.infra.Logger.Info("triage bot stopped")
}
