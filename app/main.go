package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lysyi3m/huntfeed/app/api"
	"github.com/lysyi3m/huntfeed/app/cfg"
	"github.com/lysyi3m/huntfeed/app/config"
	"github.com/lysyi3m/huntfeed/app/database"
	"github.com/lysyi3m/huntfeed/app/events"
	"github.com/lysyi3m/huntfeed/app/feed"
	"github.com/lysyi3m/huntfeed/app/hub"
	"github.com/lysyi3m/huntfeed/app/parser"
	"github.com/lysyi3m/huntfeed/app/scheduler"
	"github.com/lysyi3m/huntfeed/app/transport"
	"github.com/lysyi3m/huntfeed/app/websub"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
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
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting HuntFeed server", "version", appCfg.Version)

	// Item archive (optional)
	var itemRepo *database.ItemRepository
	if appCfg.DBPath != "" {
		db, err := database.NewConnection(appCfg.DBPath)
		if err != nil {
			slog.Error("Failed to connect to database", "path", appCfg.DBPath, "error", err)
			os.Exit(1)
		}
		defer db.Close()

		version, dirty, err := database.RunMigrations(db)
		if err != nil {
			slog.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		slog.Info("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

		itemRepo = database.NewItemRepository(db)
	} else {
		slog.Info("Item archiving disabled (DB_PATH empty)")
	}

	// Feed configurations
	loader := config.NewLoader(appCfg.FeedsDir)
	configs, err := loader.LoadAll()
	if err != nil {
		slog.Error("Failed to load feed configurations", "dir", appCfg.FeedsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded feed configurations", "dir", appCfg.FeedsDir, "count", len(configs))

	// Core components
	httpClient := &http.Client{Timeout: 30 * time.Second}
	autoDetect := parser.NewAutoDetect()
	fetcher := transport.NewFetcher(httpClient, autoDetect, appCfg.UserAgent)
	extractor := transport.NewContentExtractor(fetcher)
	feedScheduler := scheduler.NewScheduler(fetcher, extractor)

	callbackURL := strings.TrimRight(appCfg.BaseUrl, "/") + "/websub/callback"
	subscriber := websub.NewSubscriber(httpClient, autoDetect, websub.NewMemoryStore(),
		callbackURL, appCfg.LeaseSeconds, appCfg.RequireSignature, appCfg.UserAgent)

	var archive hub.ItemArchive
	if itemRepo != nil {
		archive = itemRepo
	}
	manager := hub.NewManager(feed.NewCollection(), feedScheduler, subscriber, events.NewBus(), archive)

	// Register feeds; a broken feed must not prevent startup
	registered := 0
	for name, feedConfig := range configs {
		if !feedConfig.Settings.Enabled {
			slog.Info("Skipping disabled feed", "feed", name)
			continue
		}
		if err := manager.RegisterFeed(context.Background(), feedConfig); err != nil {
			slog.Warn("Failed to register feed", "feed", name, "error", err)
			continue
		}
		registered++
	}
	slog.Info("Feeds registered", "registered", registered, "configured", len(configs))

	// Background polling
	manager.Start(time.Duration(appCfg.SchedulerInterval) * time.Second)
	defer manager.Stop()

	// HTTP server
	websubHandler := websub.NewHandler(subscriber, func(topic string, items []feed.Item) {
		manager.IngestNotification(topic, items)
	})
	apiHandler := api.NewHandler(manager, subscriber, itemRepo, appCfg.Version)
	server := api.NewServer(apiHandler, websubHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port, "callback", callbackURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
