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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urmzd/ipcom/pkg/api"
	"github.com/urmzd/ipcom/pkg/config"
	"github.com/urmzd/ipcom/pkg/db"
	"github.com/urmzd/ipcom/pkg/device/schema"
	"github.com/urmzd/ipcom/pkg/session"

	_ "github.com/urmzd/ipcom/docs"
)

// @title           IPCom API
// @version         1.0
// @description     REST API for an IPCom home automation session

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

func main() {
	// Configure logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Parse flags
	configPath := flag.String("config", "ipcom.yaml", "Path to configuration file")
	dbPath := flag.String("db", "", "Record the session to this database (default: recording.path from the config)")
	addr := flag.String("addr", "", "API listen address (default: api.address from the config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
	}
	if cfg.Log.Level != "" {
		level, err := zerolog.ParseLevel(cfg.Log.Level)
		if err != nil {
			log.Fatal().Err(err).Msg("Invalid log level")
		}
		zerolog.SetGlobalLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := session.NewMetrics(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	opts := []session.Option{
		session.WithMetrics(metrics),
		session.WithErrorHandler(func(err error) {
			log.Warn().Err(err).Msg("Session error")
		}),
		session.WithReconnectHandler(func(attempt int, delay time.Duration, err error) {
			log.Info().Int("attempt", attempt).Dur("delay", delay).AnErr("cause", err).Msg("Reconnecting")
		}),
	}

	// Optional session recording
	var (
		database *db.DB
		recorder *db.Recorder
	)
	if *dbPath != "" || cfg.Recording.Enabled {
		path := *dbPath
		if path == "" {
			path = cfg.Recording.Path
		}
		database, err = db.Open(path)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open database")
		}
		log.Info().Str("path", database.Path()).Msg("Database opened")

		if err := database.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
		if keep := cfg.Recording.Retention; keep > 0 {
			n, err := database.Recordings().Prune(ctx, time.Now().Add(-keep))
			if err != nil {
				log.Error().Err(err).Msg("Failed to prune recordings")
			} else if n > 0 {
				log.Info().Int64("pruned", n).Dur("retention", keep).Msg("Pruned old recordings")
			}
		}
		recorder, err = db.NewRecorder(ctx, database, cfg.Device.Address)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to start recorder")
		}
		log.Info().Str("recording", recorder.ID()).Msg("Recording session")
		opts = append(opts, session.WithRecorder(recorder))
	}

	engine, err := session.New(cfg.SessionConfig(), opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid session configuration")
	}

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := engine.Start(startCtx); err != nil {
		log.Warn().Err(err).Str("state", engine.SessionState()).Msg("Device session not active yet, serving in degraded mode")
	}
	cancel()

	routerOpts := []api.Option{
		api.WithMetrics(reg),
		api.WithCORSOrigins(cfg.API.CORSOrigins),
	}
	if database != nil {
		routerOpts = append(routerOpts, api.WithRecordings(database.Recordings()))
	}
	router, err := api.NewRouter(engine, engine, schema.NewValidator(), routerOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create API router")
	}

	listen := *addr
	if listen == "" {
		listen = cfg.APIAddress()
	}
	srv := &http.Server{
		Addr:              listen,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("address", listen).Msg("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down API server")
	}
	engine.Stop()

	if recorder != nil {
		if err := recorder.Close(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Failed to close recorder")
		}
		if n := recorder.Dropped(); n > 0 {
			log.Warn().Int64("dropped", n).Msg("Recorder dropped events")
		}
	}
	if database != nil {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}
}
