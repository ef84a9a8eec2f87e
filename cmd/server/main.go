package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/wagerlobby/internal/api"
	"github.com/mcoot/wagerlobby/internal/config"
	"github.com/mcoot/wagerlobby/internal/factory"
)

func main() {
	envFile := flag.String("env-file", ".env", "Optional dotenv file to load before reading the environment")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	factoryCfg, err := factory.FromConfig(cfg, logger)
	if err != nil {
		return err
	}

	app, err := factory.New(factoryCfg)
	if err != nil {
		return err
	}
	app.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Cancelled once the lobby has drained so open streams let go
	streamCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()

	serverConfig := api.DefaultServerConfig()
	serverConfig.Addr = cfg.Addr()
	server := api.NewServer(streamCtx, app.Handler(), serverConfig, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		appErr := app.Shutdown(context.Background())
		cancelStreams()
		return errors.Join(appErr, server.Shutdown(context.Background()))
	})

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.StorageType),
		slog.String("archive", cfg.ArchiveType))

	return g.Wait()
}
