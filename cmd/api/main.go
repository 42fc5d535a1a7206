package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tracker.wpgtransit.org/internal/appconf"
	"tracker.wpgtransit.org/internal/logging"
	"tracker.wpgtransit.org/internal/restapi"
)

func main() {
	// A missing .env is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", "config.json", "path to the JSON config file")
		envFlag    = flag.String("env", envOrDefault("TRACKER_ENV", "development"), "environment (development|test|production)")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	env := appconf.EnvFlagToEnvironment(*envFlag)

	cfg, err := appconf.LoadFromFile(*configPath, env)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *verbose {
		cfg.Verbose = true
	}
	if keys := os.Getenv("TRACKER_API_KEYS"); keys != "" {
		cfg.APIKeys = ParseAPIKeys(keys)
	}
	if key := os.Getenv("PROVIDER_API_KEY"); key != "" {
		cfg.ProviderAPIKey = key
	}

	logger := logging.NewLogger(cfg.Verbose)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logging.LogError(logger, "server exited with error", err)
		os.Exit(1)
	}
}

func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func run(cfg appconf.Config, logger *slog.Logger) error {
	application, scheduler, cleanup, err := BuildApplication(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	rateLimiter := restapi.NewRateLimitMiddleware(cfg.RateLimit, application.Clock)
	defer rateLimiter.Stop()

	server, api := CreateServer(application, rateLimiter)
	defer api.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	scheduler.Start(ctx)

	errChan := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "server_started",
			slog.String("addr", server.Addr),
			slog.String("env", cfg.Env.String()))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	logging.LogOperation(logger, "shutting_down_server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
