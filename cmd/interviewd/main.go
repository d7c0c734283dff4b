// Command interviewd serves the interview engine over HTTP and streams
// session events to websocket subscribers.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"interviewdesk/internal/bootstrap"
	"interviewdesk/internal/config"
	"interviewdesk/internal/httpapi"
	"interviewdesk/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	format := cfg.Log.Format
	if format == "" {
		format = logging.FormatJSON
	}
	logger := logging.New(cfg.Log.Level, format, os.Stderr)

	hub := httpapi.NewHub(logger)
	services, err := bootstrap.Assemble(cfg, logger, hub)
	if err != nil {
		logger.Fatal().Err(err).Msg("wire services")
	}
	defer func() {
		if err := services.Close(); err != nil {
			logger.Warn().Err(err).Msg("cleanup failed")
		}
	}()

	server := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           httpapi.NewRouter(services.Controller, services.History, hub, logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("address", cfg.HTTP.Address).Msg("server listening")
		serverErrors <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
		}
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if services.Controller != nil {
		if err := services.Controller.End(ctx); err != nil {
			logger.Warn().Err(err).Msg("end interview on shutdown")
		}
	}
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown failed")
		_ = server.Close()
	}
}
