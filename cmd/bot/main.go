package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	assistant "github.com/set-night/assistant"
	"github.com/set-night/assistant/internal/config"
	"github.com/set-night/assistant/internal/domain"
	"github.com/set-night/assistant/internal/handler"
	"github.com/set-night/assistant/internal/logger"
	"github.com/set-night/assistant/internal/middleware"
	"github.com/set-night/assistant/internal/repository"
	"github.com/set-night/assistant/internal/service"
	"github.com/set-night/assistant/internal/telegram"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger.Init(cfg)

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores := openStores(ctx, cfg)

	httpClient := service.NewHTTPClient(cfg.RequestTimeout)
	registry := service.NewRegistry(stores, httpClient, service.RegistryConfig{
		DefaultServerURL: cfg.DefaultServerURL,
		ServerPort:       cfg.ServerPort,
		SystemTheme:      domain.ParseTheme(cfg.SystemTheme),
		IdleTTL:          config.DeviceIdleTTL,
	})

	// Handler pointer for use in default handler closure
	var h *handler.Handler
	var tgLogger *telegram.TelegramLogger

	opts := []bot.Option{
		bot.WithMiddlewares(
			func(next bot.HandlerFunc) bot.HandlerFunc {
				return middleware.Recover(tgLogger)(next)
			},
			middleware.Logging(),
			middleware.DeviceLoader(registry),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil {
				return
			}
			h.HandleDefault(ctx, b, update)
		}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("failed to drop pending updates", "error", err)
		}
	}

	tgLogger = telegram.NewTelegramLogger(b, cfg)

	h = handler.New(handler.Deps{
		Bot:      b,
		Cfg:      cfg,
		TgLogger: tgLogger,
	})
	h.Register()

	// Drop idle chat devices; their state stays in storage
	go func() {
		ticker := time.NewTicker(config.DeviceSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := registry.Sweep(now); n > 0 {
					slog.Info("idle devices dropped", "count", n, "active", registry.Len())
				}
			}
		}
	}()

	slog.Info("starting bot",
		"username", me.Username,
		"id", me.ID,
		"default_server", cfg.DefaultServerURL,
		"persistent_storage", cfg.PersistentStorage(),
	)
	b.Start(ctx)

	slog.Info("bot stopped gracefully")
}

// openStores returns the per-chat storage factory: Postgres when
// DATABASE_URL is set, process memory otherwise.
func openStores(ctx context.Context, cfg *config.Config) service.StoreFactory {
	if !cfg.PersistentStorage() {
		slog.Warn("DATABASE_URL not set, using in-memory storage")
		mem := repository.NewMemoryNamespaces()
		return func(chatID int64) service.KeyValueStore {
			return mem.Store(strconv.FormatInt(chatID, 10))
		}
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	context.AfterFunc(ctx, pool.Close)

	migrationsFS, err := fs.Sub(assistant.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	return func(chatID int64) service.KeyValueStore {
		return repository.NewKVStore(pool, "chat:"+strconv.FormatInt(chatID, 10))
	}
}
