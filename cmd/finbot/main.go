package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"finbot/internal/bot"
	"finbot/internal/cli"
	"finbot/internal/currency"
	"finbot/internal/log"
	"finbot/internal/report"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitStorage(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := repo.SeedCategories(ctx); err != nil {
		logger.Error("Failed to seed categories", log.FieldError, err)
		os.Exit(1)
	}

	converter := currency.NewClient(cfg.RateAPIBaseURL, cfg.RateTimeout)
	generator := report.NewGenerator(repo, converter, cfg.ChartPath)
	controller := bot.NewController(repo, generator)

	handler, err := bot.NewHandler(cfg.BotToken, cfg.PollTimeout, controller)
	if err != nil {
		logger.Error("Failed to initialize bot", log.FieldError, err)
		os.Exit(1)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return handler.Run(ctx)
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Bot stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Bot stopped gracefully")
}
