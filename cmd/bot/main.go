// Command bot runs the Telegram appreciation bot: it mentions-scans group
// messages, maintains the identity ledger in Postgres, and serves the HTTP
// surface. `bot migrate <up|down|version|force N>` manages the schema.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	migrationsfs "github.com/vk-2002/telegram-bot/db"
	"github.com/vk-2002/telegram-bot/internal/appreciation"
	"github.com/vk-2002/telegram-bot/internal/channel/telegram"
	"github.com/vk-2002/telegram-bot/internal/config"
	"github.com/vk-2002/telegram-bot/internal/db"
	"github.com/vk-2002/telegram-bot/internal/digest"
	"github.com/vk-2002/telegram-bot/internal/identity"
	"github.com/vk-2002/telegram-bot/internal/logger"
	"github.com/vk-2002/telegram-bot/internal/mention"
	"github.com/vk-2002/telegram-bot/internal/server"
)

func provideConfig() (config.Config, error) {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	// Secrets and deploy-specific values win over the file.
	if token := os.Getenv("BOT_TOKEN"); token != "" {
		cfg.Telegram.BotToken = token
	}
	if url := os.Getenv("WEBHOOK_URL"); url != "" {
		cfg.Telegram.WebhookURL = url
		cfg.Telegram.Mode = "webhook"
	}
	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config, log *slog.Logger) (*pgxpool.Pool, error) {
	ctx := context.Background()
	if err := db.Migrate(log, cfg.Postgres, mustMigrationsFS()); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	pool, err := db.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			pool.Close()
			return nil
		},
	})
	return pool, nil
}

func provideStore(pool *pgxpool.Pool) identity.Store {
	return identity.NewPostgresStore(pool)
}

func provideExtractor(cfg config.Config) *mention.Extractor {
	return mention.NewExtractor(cfg.Appreciation.Stoplist)
}

func provideResolver(log *slog.Logger, cfg config.Config, store identity.Store) (*appreciation.Resolver, error) {
	policy, err := appreciation.ParsePolicy(cfg.Appreciation.Policy)
	if err != nil {
		return nil, err
	}
	log.Info("resolution policy", slog.String("policy", policy.String()))
	return appreciation.NewResolver(log, store, policy), nil
}

func provideChannel(log *slog.Logger, cfg config.Config, engine *appreciation.Engine) (*telegram.Channel, error) {
	return telegram.New(log, cfg.Telegram, engine)
}

func provideDigest(log *slog.Logger, cfg config.Config, store identity.Store, channel *telegram.Channel) *digest.Scheduler {
	return digest.NewScheduler(log, cfg.Digest, store, channel)
}

func provideServer(log *slog.Logger, cfg config.Config, store identity.Store, channel *telegram.Channel) *server.Server {
	return server.NewServer(log, cfg.Server.Addr,
		server.NewLeaderboardHandler(log, store),
		telegram.NewWebhookHandler(log, channel),
	)
}

func startChannel(lc fx.Lifecycle, log *slog.Logger, channel *telegram.Channel, shutdowner fx.Shutdowner) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := channel.Run(ctx); err != nil {
					log.Error("telegram channel failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func startDigest(lc fx.Lifecycle, scheduler *digest.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return scheduler.Start()
		},
		OnStop: func(ctx context.Context) error {
			select {
			case <-scheduler.Stop().Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
}

func startServer(lc fx.Lifecycle, log *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

func mustMigrationsFS() fs.FS {
	sub, err := fs.Sub(migrationsfs.MigrationsFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

func runMigrateCommand(args []string) error {
	cfg, err := provideConfig()
	if err != nil {
		return err
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	command := "up"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}
	return db.RunMigrate(logger.L, cfg.Postgres, mustMigrationsFS(), command, args)
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrateCommand(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,
			provideStore,
			provideExtractor,
			provideResolver,
			identity.NewService,
			appreciation.NewLedger,
			appreciation.NewEngine,
			provideChannel,
			provideDigest,
			provideServer,
		),
		fx.Invoke(
			startChannel,
			startDigest,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}
