package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/JaimeStill/bugcrowd-triage/internal/config"
)

func main() {
	once := flag.Bool("once", false, "Run a single ingest/resolve cycle and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot, err := newBot(ctx, cfg)
	if err != nil {
		log.Fatal("bot init failed: ", err)
	}

	if err := bot.run(*once); err != nil {
		bot.infra.Logger.Error("bot stopped with error", "error", err)
		os.Exit(1)
	}
}
