package chat_test

import (
	"context"
	"errors"
	"testing"

	"github.com/zhouzirui/arix-mart/backend/internal/model/persona"
	"github.com/zhouzirui/arix-mart/backend/internal/service/ai"
	chat "github.com/zhouzirui/arix-mart/backend/internal/service/chat"
)

type echoCompleter struct{}

func (echoCompleter) Complete(_ context.Context, text string) (string, error) {
	return "echo: " + text, nil
}

func newService(welcome bool) *chat.Service {
	store := persona.NewMemoryStore(persona.Seed())
	return chat.NewService(store, func(persona.Persona) ai.Completer { return echoCompleter{} }, chat.Options{Welcome: welcome})
}

func TestServiceGetSession(t *testing.T) {
	svc := newService(true)
	defer svc.Close()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, persona.DefaultID)
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}

	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}
	if got.PersonaID != persona.DefaultID {
		t.Fatalf("unexpected persona ID: got %s", got.PersonaID)
	}
}

func TestServiceCreateSessionDefaultPersona(t *testing.T) {
	svc := newService(true)
	defer svc.Close()

	session, err := svc.CreateSession(context.Background(), "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	if session.PersonaID != persona.DefaultID {
		t.Fatalf("expected default persona, got %s", session.PersonaID)
	}
}

func TestServiceCreateSessionUnknownPersona(t *testing.T) {
	svc := newService(true)
	defer svc.Close()

	if _, err := svc.CreateSession(context.Background(), "iron-man"); !errors.Is(err, chat.ErrPersonaNotFound) {
		t.Fatalf("expected ErrPersonaNotFound, got %v", err)
	}
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := newService(true)
	defer svc.Close()

	if _, err := svc.GetSession(context.Background(), "missing"); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestServiceWelcomeTurn(t *testing.T) {
	ctx := context.Background()
	for _, welcome := range []bool{true, false} {
		svc := newService(welcome)
		session, err := svc.CreateSession(ctx, "")
		if err != nil {
			t.Fatalf("CreateSession err: %v", err)
		}

		turns, err := svc.LoadTranscript(ctx, session.ID)
		if err != nil {
			t.Fatalf("LoadTranscript err: %v", err)
		}

		want := 0
		if welcome {
			want = 1
		}
		if len(turns) != want {
			t.Fatalf("welcome=%v: expected %d turns, got %d", welcome, want, len(turns))
		}
		svc.Close()
	}
}

func TestServiceCloseSession(t *testing.T) {
	svc := newService(true)
	defer svc.Close()
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}
	d, err := svc.Dispatcher(ctx, session.ID)
	if err != nil {
		t.Fatalf("Dispatcher err: %v", err)
	}

	if err := svc.CloseSession(ctx, session.ID); err != nil {
		t.Fatalf("CloseSession err: %v", err)
	}
	select {
	case <-d.Done():
	default:
		t.Fatal("dispatcher still running after CloseSession")
	}

	if err := svc.CloseSession(ctx, session.ID); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on second close, got %v", err)
	}
	if svc.Count() != 0 {
		t.Fatalf("expected no sessions, got %d", svc.Count())
	}
}

func TestServiceClosedRejectsNewSessions(t *testing.T) {
	svc := newService(true)
	svc.Close()

	if _, err := svc.CreateSession(context.Background(), ""); !errors.Is(err, chat.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
