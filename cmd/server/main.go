package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parleychat/parley/internal/server"
)

func main() {
	cfg := server.NewConfigFromEnv()
	logger := server.NewLogger(cfg.LogLevel)

	srv := server.NewServer(*cfg, logger)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		logger.Info().Msg("Shutdown signal received")
		if err := srv.Shutdown(10 * time.Second); err != nil {
			logger.Warn().Err(err).Msg("Shutdown did not complete cleanly")
		}
	}()

	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}

	<-shutdownDone
}
