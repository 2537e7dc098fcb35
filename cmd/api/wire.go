package main

import (
	"io"

	"github.com/HamedShams/devops-pulse/internal/adapters/azdo"
	"github.com/HamedShams/devops-pulse/internal/adapters/openai"
	"github.com/HamedShams/devops-pulse/internal/adapters/relay"
	"github.com/HamedShams/devops-pulse/internal/config"
	"github.com/HamedShams/devops-pulse/internal/logger"
	"github.com/HamedShams/devops-pulse/internal/services"
	"github.com/rs/zerolog"
)

// bootstrap loads and validates configuration, then builds the logger and
// the operation set shared by both commands.
func bootstrap(logOut io.Writer) (config.Config, zerolog.Logger, *services.Service, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, zerolog.Nop(), nil, err
	}
	log := logger.New(cfg, logOut)
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("configuration rejected")
		return cfg, log, nil, err
	}

	tracker := azdo.NewClient(cfg, log)
	llm := openai.NewClient(cfg, log)
	rl := relay.NewClient(cfg, log)
	return cfg, log, services.NewService(log, tracker, llm, rl), nil
}
