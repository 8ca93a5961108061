package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v9"
	"github.com/sandevgo/modbot/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"MODBOT_RUNTIME_PATH" envDefault:".modbot"`

	// Transport flags
	EnableTelegram bool `env:"ENABLE_TELEGRAM" envDefault:"false"`
	EnableCLI      bool `env:"ENABLE_CLI" envDefault:"true"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "modbot.db")
}

// GetModsPath is the directory installed mods are unpacked into, one
// subdirectory per mod id.
func (c AppConfig) GetModsPath() string {
	return filepath.Join(c.RuntimePath, "mods")
}

// GetStatePath is the persisted set of loaded mods.
func (c AppConfig) GetStatePath() string {
	return filepath.Join(c.RuntimePath, "loaded.json")
}

func (c AppConfig) IsTelegramSelected() bool {
	return c.EnableTelegram
}
