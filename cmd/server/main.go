package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/config"
	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/logging"
	"github.com/SyedZawwarAhmed/webrtc-video-calling-app/internal/server"
)

func main() {
	log := logging.New("server")
	cfg := config.LoadServer()

	registry := server.NewRegistry(log)
	hub := server.NewHub(registry, log)
	go hub.Run()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.NewRouter(hub, log),
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("starting signaling server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down signaling server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	hub.Stop()
	log.Info().Msg("server exited")
}
