package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/arix-mart/backend/internal/config"
	"github.com/zhouzirui/arix-mart/backend/internal/handler"
	"github.com/zhouzirui/arix-mart/backend/internal/logging"
	"github.com/zhouzirui/arix-mart/backend/internal/model/persona"
	"github.com/zhouzirui/arix-mart/backend/internal/service/ai"
	"github.com/zhouzirui/arix-mart/backend/internal/service/chat"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.Setup(cfg.Log, os.Stdout)
	if envErr != nil {
		logger.Warn().Err(envErr).Msg("no .env file, continuing with system environment variables only")
	}

	personaStore := persona.NewMemoryStore(persona.Seed())
	defaultPersona, ok := personaStore.FindByID(cfg.Chat.PersonaID)
	if !ok {
		logger.Fatal().Str("persona", cfg.Chat.PersonaID).Msg("unknown CHAT_PERSONA")
	}

	if !cfg.AI.Enabled() {
		logger.Warn().Msg("GROQ_API_KEY not set, every reply will report the missing credential")
	}
	client := ai.NewClientFromConfig(ctx, cfg.AI, defaultPersona)

	chatService := chat.NewService(personaStore, func(p persona.Persona) ai.Completer {
		return client.ForProfile(p)
	}, chat.Options{
		Welcome:     cfg.Chat.Welcome,
		Timeout:     cfg.AI.RequestTimeout,
		EventBuffer: cfg.Chat.EventBuffer,
	})
	defer chatService.Close()

	router := handler.NewRouter(logger, personaStore, chatService)

	startServer(ctx, logger, cfg.Server, router)
}

func startServer(ctx context.Context, logger zerolog.Logger, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info().Str("addr", addr).Msg("Arix Mart assistant listening")
	if err := runServer(ctx, srv); err != nil {
		logger.Error().Err(err).Msg("server error")
		return
	}
	logger.Info().Msg("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
