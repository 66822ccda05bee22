package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"discover-scanner/internal/config"
	"discover-scanner/internal/discover"
	"discover-scanner/internal/feed"
	"discover-scanner/internal/keepalive"
	"discover-scanner/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	endpoint := flag.String("endpoint", "", "Override feed websocket endpoint")
	verbose := flag.Bool("verbose", false, "Log every rejected token and keep-alive")
	envFile := flag.String("env-file", ".env", "Dotenv file loaded before reading configuration")

	flag.Parse()

	logger := log.New(os.Stdout, "[scanner] ", log.LstdFlags|log.Lshortfile)

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("Warning: could not load %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *endpoint != "" {
		cfg.Feed.Endpoint = *endpoint
	}
	if *verbose {
		cfg.Logging.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, logger, cfg)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

func run(ctx context.Context, logger *log.Logger, cfg *config.Config) error {
	thresholds, err := cfg.Filter.Thresholds()
	if err != nil {
		return err
	}

	sinks, err := buildSinks(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer sinks.Close()

	header := http.Header{}
	if cfg.Feed.Origin != "" {
		header.Set("Origin", cfg.Feed.Origin)
	}

	manager, err := feed.Open(cfg.Feed.Endpoint, &feed.Config{
		ReconnectDelay:       cfg.Feed.ReconnectDelay,
		MaxReconnectAttempts: cfg.Feed.MaxReconnectAttempts,
		HandshakeTimeout:     cfg.Feed.HandshakeTimeout,
		ReadTimeout:          cfg.Feed.ReadTimeout,
		WriteTimeout:         cfg.Feed.WriteTimeout,
		EventBuffer:          feed.DefaultConfig().EventBuffer,
	}, feed.Options{
		Header:    header,
		Subscribe: []interface{}{discover.SubscribeCommand(cfg.Feed.Channel)},
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer manager.Close()

	scanner := pipeline.NewScanner(thresholds, sinks.Sink, logger).WithVerbose(cfg.Logging.Verbose)

	if cfg.Metrics.Addr != "" {
		srv := newStatusServer(cfg.Metrics.Addr, manager, scanner)
		go func() {
			logger.Printf("Starting status server on %s", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("Status server error: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	ping := &keepalive.Scheduler{
		Target:   manager,
		Interval: cfg.Keepalive.Interval,
		Payload:  discover.Ping(),
		Logger:   logger,
		Verbose:  cfg.Logging.Verbose,
	}
	go ping.Run(ctx)

	scanDone := make(chan error, 1)
	go func() {
		scanDone <- scanner.Run(context.Background(), manager.Events())
	}()

	logger.Printf("Scanning %s (channel %s, session %s)", manager.Endpoint(), cfg.Feed.Channel, manager.ID())
	runErr := manager.Run(ctx)

	// Events is closed once Run returns; drain what the scanner has left.
	if err := <-scanDone; err != nil {
		logger.Printf("Scanner stopped: %v", err)
	}

	stats := scanner.Stats()
	logger.Printf("Processed %d frames, %d tokens, %d matches", stats.Frames, stats.Decoded, stats.Matched)
	return runErr
}
