package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/zhouzirui/arix-mart/backend/internal/config"
	"github.com/zhouzirui/arix-mart/backend/internal/logging"
	"github.com/zhouzirui/arix-mart/backend/internal/model/persona"
	"github.com/zhouzirui/arix-mart/backend/internal/service/ai"
	"github.com/zhouzirui/arix-mart/backend/internal/service/chat"
	chatui "github.com/zhouzirui/arix-mart/backend/internal/ui/chat"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "arix chat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	var logOut io.Writer = io.Discard
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logging.Setup(cfg.Log, logOut)

	personaStore := persona.NewMemoryStore(persona.Seed())
	profile, ok := personaStore.FindByID(cfg.Chat.PersonaID)
	if !ok {
		return fmt.Errorf("unknown CHAT_PERSONA %q", cfg.Chat.PersonaID)
	}

	client := ai.NewClientFromConfig(ctx, cfg.AI, profile)
	chatService := chat.NewService(personaStore, func(p persona.Persona) ai.Completer {
		return client.ForProfile(p)
	}, chat.Options{
		Welcome:     cfg.Chat.Welcome,
		Timeout:     cfg.AI.RequestTimeout,
		EventBuffer: cfg.Chat.EventBuffer,
	})
	defer chatService.Close()

	session, err := chatService.CreateSession(ctx, profile.ID)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	d, err := chatService.Dispatcher(ctx, session.ID)
	if err != nil {
		return err
	}

	snap, events, unsubscribe, err := d.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer unsubscribe()

	title := profile.Name
	if profile.Title != "" {
		title += " · " + profile.Title
	}

	model := chatui.New(ctx, title, d, snap, events)
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
