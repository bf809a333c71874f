package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/arix-mart/backend/internal/metrics"
	"github.com/zhouzirui/arix-mart/backend/internal/model/chat"
	"github.com/zhouzirui/arix-mart/backend/internal/model/persona"
	"github.com/zhouzirui/arix-mart/backend/internal/service/ai"
	"github.com/zhouzirui/arix-mart/backend/internal/service/dispatch"
)

var (
	ErrPersonaNotFound = errors.New("persona not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrClosed          = errors.New("chat service closed")
)

// CompleterFactory binds a completion client to a persona's system prompt.
type CompleterFactory func(p persona.Persona) ai.Completer

// Options configures the dispatchers the service starts.
type Options struct {
	Welcome     bool
	Timeout     time.Duration
	EventBuffer int
}

type entry struct {
	session    chat.Session
	dispatcher *dispatch.Dispatcher
	cancel     context.CancelFunc
}

// Service keeps the open chat sessions, each served by its own dispatcher.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	closed   bool
	wg       sync.WaitGroup

	personas   persona.Store
	completers CompleterFactory
	opts       Options
}

// NewService bootstraps the in-memory session registry.
func NewService(personas persona.Store, completers CompleterFactory, opts Options) *Service {
	return &Service{
		sessions:   make(map[string]*entry),
		personas:   personas,
		completers: completers,
		opts:       opts,
	}
}

// CreateSession starts a chat window bound to a persona. An empty personaID
// selects the default persona.
func (s *Service) CreateSession(_ context.Context, personaID string) (chat.Session, error) {
	p, ok := s.personas.FindByID(personaID)
	if !ok {
		return chat.Session{}, ErrPersonaNotFound
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		PersonaID: p.ID,
		CreatedAt: time.Now().UTC(),
	}

	opts := dispatch.Options{
		Cleared:     p.ClearedMessage,
		Timeout:     s.opts.Timeout,
		EventBuffer: s.opts.EventBuffer,
	}
	if s.opts.Welcome {
		opts.Welcome = p.WelcomeMessage
	}
	logger := log.With().Str("session", session.ID).Logger()
	opts.Logger = &logger

	d := dispatch.New(s.completers(p), opts)
	runCtx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return chat.Session{}, ErrClosed
	}
	s.sessions[session.ID] = &entry{session: session, dispatcher: d, cancel: cancel}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		if err := d.Run(runCtx); err != nil {
			logger.Error().Err(err).Msg("dispatcher exited")
		}
	}()

	metrics.SessionsActive.Inc()
	logger.Info().Str("persona", p.ID).Msg("session created")
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	return e.session, nil
}

// Dispatcher returns the dispatcher serving a session.
func (s *Service) Dispatcher(_ context.Context, sessionID string) (*dispatch.Dispatcher, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	return e.dispatcher, nil
}

// LoadTranscript returns the session's turns.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Turn, error) {
	d, err := s.Dispatcher(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Turns, nil
}

// CloseSession stops the session's dispatcher and forgets it.
func (s *Service) CloseSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	if ok {
		delete(s.sessions, sessionID)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	e.cancel()
	<-e.dispatcher.Done()
	metrics.SessionsActive.Dec()
	log.Info().Str("session", sessionID).Msg("session closed")
	return nil
}

// Close stops every session and waits for their dispatchers.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	entries := s.sessions
	s.sessions = make(map[string]*entry)
	s.mu.Unlock()

	for _, e := range entries {
		e.cancel()
		metrics.SessionsActive.Dec()
	}
	s.wg.Wait()
}

// Count reports the number of open sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) lookup(sessionID string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}
