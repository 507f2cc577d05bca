package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/karthikrv/districtwatch/app/api"
	"github.com/karthikrv/districtwatch/app/cfg"
	"github.com/karthikrv/districtwatch/app/commands"
	"github.com/karthikrv/districtwatch/app/database"
	"github.com/karthikrv/districtwatch/app/extractor"
	"github.com/karthikrv/districtwatch/app/gateway"
	"github.com/karthikrv/districtwatch/app/notifier"
	"github.com/karthikrv/districtwatch/app/tasks"
)

const telegramAPIRoot = "https://api.telegram.org/bot"

func main() {
	c, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if c == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if c.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting DistrictWatch", "version", c.Version)

	db, err := database.NewConnection(c.DBPath)
	if err != nil {
		slog.Error("Failed to open state database", "path", c.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("State database ready", "path", c.DBPath, "schema_version", version, "dirty", dirty)

	movieRepo := database.NewMovieRepository(db)
	snapshotRepo := database.NewSnapshotRepository(db)
	runRepo := database.NewRunRepository(db)

	configGateway := gateway.New(movieRepo, c.DefaultTheatres)

	movieCount, err := movieRepo.GetMovieCount()
	if err != nil {
		slog.Error("Failed to read movie configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("Movie configuration loaded", "movies", movieCount)

	httpClient := &http.Client{Timeout: time.Duration(c.RequestTimeout) * time.Second}
	breaker := extractor.NewCircuitBreaker(c.BreakerThreshold, time.Duration(c.BreakerCooldown)*time.Second)
	pageExtractor := extractor.New(httpClient, breaker)

	telegramBaseURL := ""
	if c.TelegramToken != "" {
		telegramBaseURL = telegramAPIRoot + c.TelegramToken
	}
	telegramClient := notifier.NewClient(&http.Client{Timeout: 30 * time.Second}, telegramBaseURL, c.TelegramChatID)
	if !telegramClient.Enabled() {
		slog.Warn("Telegram not configured, alerts will be logged and dropped")
	}

	slog.Info("Starting check scheduler", "workers", c.WorkerCount, "interval", c.CheckInterval)
	checkScheduler := tasks.NewScheduler(configGateway, snapshotRepo, runRepo, pageExtractor, telegramClient)
	checkScheduler.Start()
	defer checkScheduler.Stop()

	pollerCtx, cancelPoller := context.WithCancel(context.Background())
	defer cancelPoller()

	commandHandler := commands.NewHandler(configGateway, telegramClient, runRepo)
	commandPoller := commands.NewPoller(telegramClient, commandHandler,
		time.Duration(c.CommandPollInterval)*time.Second)
	go commandPoller.Run(pollerCtx)

	apiHandler := api.NewHandler(configGateway, runRepo, c.Version)
	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      api.NewServer(apiHandler, c.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", c.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if telegramClient.Enabled() {
		startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := telegramClient.SendMessage(startupCtx, "👀 DistrictWatch is up and monitoring."); err != nil {
			slog.Warn("Failed to send startup message", "error", err)
		}
		cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error, shutting down", "error", err)
	}

	cancelPoller()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Scheduler is stopped via defer; it waits for in-flight checks
	slog.Info("DistrictWatch shutdown complete")
}
