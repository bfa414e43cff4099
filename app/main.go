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

	"github.com/lysyi3m/rss-inbox/app/api"
	"github.com/lysyi3m/rss-inbox/app/cfg"
	"github.com/lysyi3m/rss-inbox/app/database"
	"github.com/lysyi3m/rss-inbox/app/feed"
	"github.com/lysyi3m/rss-inbox/app/hub"
	"github.com/lysyi3m/rss-inbox/app/registry"
	"github.com/lysyi3m/rss-inbox/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting RSS Inbox server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	feedRepo := database.NewFeedRepository(db)
	itemRepo := database.NewItemRepository(db)

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			IdleConnTimeout:     30 * time.Second,
			MaxIdleConnsPerHost: 5,
		},
	}

	feedRegistry := registry.New(feedRepo)
	seedFeeds(feedRegistry, appCfg.SeedFile)

	parser := feed.NewParser()
	ingester := feed.NewIngester(parser, feedRepo, itemRepo)
	poller := feed.NewPoller(ingester, feedRepo, httpClient, appCfg.UserAgent)
	contentExtractor := feed.NewContentExtractor()

	hubClient := hub.NewClient(hub.Config{
		Endpoint:    appCfg.HubEndpoint,
		Username:    appCfg.HubUsername,
		Password:    appCfg.HubPassword,
		Secret:      appCfg.HubSecret,
		CallbackURL: appCfg.CallbackURL,
	}, feedRepo, httpClient, appCfg.UserAgent)

	scheduler := tasks.NewScheduler(feedRepo, itemRepo, poller, contentExtractor, httpClient,
		appCfg.UserAgent, time.Duration(appCfg.PollInterval)*time.Second, appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appCfg.WorkerCount, "poll_interval", appCfg.PollInterval)

	handler := api.NewHandler(feedRegistry, feedRepo, itemRepo, ingester, poller,
		hubClient, scheduler, appCfg.Version)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "callback_url", appCfg.CallbackURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}

// seedFeeds registers the feeds listed in the optional startup seed file.
// Registration is idempotent, so re-running with the same file is harmless.
func seedFeeds(feedRegistry *registry.Registry, seedFile string) {
	if seedFile == "" {
		return
	}

	seeds, err := cfg.LoadSeed(seedFile)
	if err != nil {
		slog.Error("Failed to load seed file", "path", seedFile, "error", err)
		os.Exit(1)
	}

	for _, seed := range seeds {
		id, err := feedRegistry.Register(seed.URL, registry.Options{
			Owner:          seed.Owner,
			ExtractContent: seed.ExtractContent,
		})
		if err != nil {
			slog.Warn("Failed to register seed feed", "url", seed.URL, "error", err)
			continue
		}
		slog.Debug("Seed feed registered", "id", id, "url", seed.URL)
	}
}
