package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/modbot/internal/config"
	"github.com/sandevgo/modbot/internal/core"
	"github.com/sandevgo/modbot/internal/providers/modhost"
	"github.com/sandevgo/modbot/internal/providers/repo"
	"github.com/sandevgo/modbot/internal/service/command"
	"github.com/sandevgo/modbot/internal/service/modctl"
	"github.com/sandevgo/modbot/internal/storage/sqlite"
	"github.com/sandevgo/modbot/internal/transport/cli"
	"github.com/sandevgo/modbot/internal/transport/telegram"
	"github.com/sandevgo/modbot/pkg/log"
	"github.com/sandevgo/modbot/pkg/srv"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	err := initEnv(ctx, config.GetRuntimePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	registryCfg := config.NewRegistryConfig(ctx)

	// The mod host refuses to start without its mods directory.
	if err := os.MkdirAll(appCfg.GetModsPath(), 0755); err != nil {
		logger.Fatal().Err(err).Msg("failed to create mods directory")
	}

	// 2. Storage
	db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	services = append(services, srv.NewCleanup(db.Close))

	eventsRepo := sqlite.NewEventsRepo(db)

	// 3. Mod Host
	host := initModHost(appCfg)
	services = append(services, host)

	// 4. Registry Client
	repoClient := repo.NewClient(registryCfg, appCfg)

	// 5. Transports
	transports, err := initTransports(ctx, appCfg, repoClient, host, eventsRepo)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize transports")
	}
	services = append(services, transports...)

	return services
}

func initModHost(cfg *config.AppConfig) *modhost.Host {
	storage := modhost.NewFileStorage(cfg.GetStatePath())
	pool := modhost.NewPool()
	cache := modhost.NewToolCache()
	return modhost.NewHost(cfg, pool, storage, cache)
}

// initTransports builds one dispatcher per enabled transport, each bound to
// that transport's notifier. Notices land on the channel the command came from.
func initTransports(ctx context.Context, cfg *config.AppConfig, repoClient core.ModRepository, host *modhost.Host, events core.EventsRepository) ([]srv.Service, error) {
	var services []srv.Service

	newRouter := func(notifier core.Notifier) core.CmdRouter {
		ctl := modctl.NewService(repoClient, host, notifier, events)
		return command.New(command.NewCommands(ctl, host, host, events))
	}

	// Telegram Bot
	if cfg.IsTelegramSelected() {
		tgCfg := config.NewTelegramConfig(ctx)
		bot, err := telegram.NewBot(ctx, tgCfg)
		if err != nil {
			return nil, err
		}
		bot.HandleCommands(newRouter(bot.Notifier()))
		services = append(services, bot)
	}

	// Console
	if cfg.EnableCLI {
		rl, err := cli.NewReadLine(cfg)
		if err != nil {
			return nil, err
		}
		rl.HandleCommands(newRouter(rl.Notifier()))
		services = append(services, rl)
	}

	return services, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
