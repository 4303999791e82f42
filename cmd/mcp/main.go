package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/ipcom/pkg/config"
	"github.com/urmzd/ipcom/pkg/device"
	ipcommcp "github.com/urmzd/ipcom/pkg/mcp"
	"github.com/urmzd/ipcom/pkg/session"
)

const version = "1.0.0"

func main() {
	// Logging must go to stderr, stdout is the MCP transport
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	configPath := flag.String("config", "ipcom.yaml", "Path to configuration file")
	offline := flag.Bool("offline", false, "Serve the configured topology without connecting to the device")
	httpAddr := flag.String("http", "", "Serve streamable HTTP on this address instead of stdio")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
	}
	if cfg.Log.Level != "" {
		if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	}

	var controller device.Controller
	if *offline {
		controller = device.NewNullController(cfg.SessionConfig().Topology)
	} else {
		engine, err := session.New(cfg.SessionConfig(),
			session.WithErrorHandler(func(err error) {
				log.Warn().Err(err).Msg("Session error")
			}),
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid session configuration")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := engine.Start(ctx); err != nil {
			log.Warn().Err(err).Msg("Device session not active yet")
		}
		cancel()
		controller = engine
	}
	defer controller.Close()

	mcpServer := ipcommcp.NewServer(controller, version)

	if *httpAddr == "" {
		log.Info().Msg("Starting MCP server on stdio")
		if err := mcpServer.ServeStdio(); err != nil {
			log.Error().Err(err).Msg("MCP server failed")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mcpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to shut down MCP server")
		}
	}()

	log.Info().Str("address", *httpAddr).Msg("Starting MCP server on streamable HTTP")
	if err := mcpServer.ServeHTTP(*httpAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("MCP server failed")
	}
}
