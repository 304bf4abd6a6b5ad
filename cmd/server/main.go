package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Manishkarki1/realtime-tracker/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	server.SetConfig(loadConfig(logger))
	cfg := server.ActiveConfig()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		go func() {
			if err := server.WatchConfig(ctx, path, logger); err != nil {
				logger.Warn().Err(err).Msg("config watcher stopped")
			}
		}()
	}

	hub := server.NewHub(logger)
	go hub.Run()

	handlers := server.NewHandlers(hub, logger)
	httpServer := server.CreateServer(cfg.Port, handlers.Routes())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer, logger)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
		return
	}

	cancel()
	if err := server.ShutdownServer(httpServer, shutdownTimeout, logger); err != nil {
		logger.Warn().Err(err).Msg("HTTP server did not shut down cleanly")
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		logger.Warn().Err(err).Msg("hub did not shut down cleanly")
	}
}

// loadConfig reads the optional CONFIG_FILE and layers environment overrides
// on top; without a file, configuration comes from the environment alone.
func loadConfig(logger zerolog.Logger) *server.Config {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		return server.NewConfigFromEnv()
	}

	cfg, err := server.LoadConfig(path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("failed to load configuration")
	}

	server.ApplyEnvOverrides(cfg)
	return cfg
}
