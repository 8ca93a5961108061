package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/modbot/pkg/log"
)

type RegistryConfig struct {
	BaseURL string `env:"REGISTRY_URL" envDefault:"https://registry.modbot.dev"`
	Token   string `env:"REGISTRY_TOKEN"`

	// Download cap, archives above this are rejected.
	MaxArchiveBytes int64 `env:"REGISTRY_MAX_ARCHIVE_BYTES" envDefault:"52428800"`
}

func NewRegistryConfig(ctx context.Context) *RegistryConfig {
	c := &RegistryConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Registry config")
	}
	return c
}

func (c RegistryConfig) GetBaseURL() string {
	return c.BaseURL
}

func (c RegistryConfig) GetToken() string {
	return c.Token
}

func (c RegistryConfig) GetMaxArchiveBytes() int64 {
	return c.MaxArchiveBytes
}
