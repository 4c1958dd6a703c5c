package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/freestartupia/startupia/internal/cli"
	"github.com/freestartupia/startupia/internal/platform/config"
	"github.com/freestartupia/startupia/internal/platform/logging"
)

func main() {
	cfg, err := config.LoadAdmin()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(cli.ConnectPostgres, cfg.DatabaseURL, cfg.LogFormat)
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
