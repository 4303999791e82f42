package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/ipcom/pkg/config"
	"github.com/urmzd/ipcom/pkg/devicesim"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	addr := flag.String("addr", "127.0.0.1:5000", "Listen address")
	configPath := flag.String("config", "", "Configuration file to take the topology and credentials from")
	username := flag.String("username", "", "Accepted username")
	password := flag.String("password", "", "Accepted password")
	siblingDrop := flag.Bool("sibling-drop", false, "Reproduce the firmware bug that switches sibling outputs off")
	debug := flag.Bool("debug", false, "Log every frame")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg := devicesim.Config{
		Username:    *username,
		Password:    *password,
		SiblingDrop: *siblingDrop,
		Modules:     map[int][]int{1: make([]int, 8)},
	}
	if *configPath != "" {
		fileCfg, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		if len(fileCfg.Topology.Modules) > 0 {
			cfg.Modules = devicesim.ModulesFromTopology(&fileCfg.Topology)
		}
		if cfg.Username == "" {
			cfg.Username = fileCfg.Device.Username
			cfg.Password = fileCfg.Device.Password
		}
	}

	dev, err := devicesim.Start(*addr, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start simulator")
	}
	log.Info().Str("address", dev.Addr()).Int("modules", len(cfg.Modules)).Msg("Device simulator running")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("Shutting down...")
	if err := dev.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close simulator")
	}
}
