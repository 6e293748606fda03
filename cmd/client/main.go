package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/nleskin/repurpose/internal/client/api"
	"github.com/nleskin/repurpose/internal/client/cache"
	"github.com/nleskin/repurpose/internal/client/cli"
	"github.com/nleskin/repurpose/internal/client/content"
	"github.com/nleskin/repurpose/internal/client/events"
	"github.com/nleskin/repurpose/internal/client/iocli"
	"github.com/nleskin/repurpose/internal/client/session"
	"github.com/nleskin/repurpose/internal/client/storage/boltdb"
	"github.com/nleskin/repurpose/internal/client/storage/sqlite"
	"github.com/nleskin/repurpose/internal/config"
	"github.com/nleskin/repurpose/internal/crypto"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "", "Server URL (overrides REPURPOSE_SERVER_URL)")
	dataDir := flag.String("config", "", "Path to data directory (overrides REPURPOSE_DATA_DIR)")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	io := iocli.NewStdio()

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(io)
		os.Exit(1)
	}
	command := args[0]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	// Флаги сильнее окружения
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := run(context.Background(), cfg, logger, io, command, args[1:]); err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			fmt.Fprintln(os.Stderr, "Session expired. Please run 'repurpose login' again.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, io iocli.IO, command string, args []string) error {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// Bolt хранит сессию и markers
	bolt, err := boltdb.New(ctx, cfg.SessionDBPath())
	if err != nil {
		return fmt.Errorf("failed to open session database: %w", err)
	}
	defer func() {
		if err := bolt.Close(); err != nil {
			logger.Error("failed to close session database", "error", err)
		}
	}()

	// Токены запечатываются ключом, привязанным к устройству
	deviceKey, err := crypto.LoadOrCreateDeviceKey(cfg.DeviceKeyPath())
	if err != nil {
		return fmt.Errorf("failed to load device key: %w", err)
	}
	sessionStore, err := session.NewSealedStore(bolt, deviceKey)
	if err != nil {
		return fmt.Errorf("failed to create session store: %w", err)
	}

	apiClient := api.NewClient(cfg.ServerURL)
	requestCache := cache.New()
	bus := events.NewBus(logger)
	defer bus.Close()

	sessions := session.NewManager(apiClient, sessionStore, requestCache, bus, logger)
	apiClient.SetTokenSource(sessions)
	defer sessions.Close()

	// Оптимистичное восстановление сессии перед командой
	if err := sessions.Initialize(ctx); err != nil {
		logger.Warn("session restore failed", "error", err)
	}

	// Локальная библиотека сохраненных постов
	library, err := sqlite.New(ctx, cfg.LibraryDBPath())
	if err != nil {
		return fmt.Errorf("failed to open library database: %w", err)
	}
	defer func() {
		if err := library.Close(); err != nil {
			logger.Error("failed to close library database", "error", err)
		}
	}()

	contentService := content.NewService(apiClient, library, requestCache, bus, sessions, logger)

	return cli.New(sessions, contentService, io).Run(ctx, command, args)
}

func printVersion() {
	fmt.Printf("Repurpose Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
