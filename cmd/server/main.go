package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mkoval/dealroom/internal/auth"
	"github.com/mkoval/dealroom/internal/config"
	"github.com/mkoval/dealroom/internal/realtime"
	"github.com/mkoval/dealroom/internal/storage"
	router "github.com/mkoval/dealroom/internal/transport/http"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Secret == "" {
		log.Fatal().Msg("secret must be configured")
	}

	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open storage")
	}
	defer db.Close()

	deals := storage.NewDealStore(db)
	messages, err := storage.NewMessageStore(db)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open message store")
	}
	defer messages.Close()

	verifier := auth.NewVerifier(cfg.Secret, cfg.TokenTTL)
	orch := realtime.NewOrchestrator(deals, messages, messages, cfg.HistoryLimit)

	r := router.SetupRouter(ctx, cfg, orch, verifier)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("dealroom server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
