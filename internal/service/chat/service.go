package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"

	"github.com/zhouzirui/assistant-relay/backend/internal/metrics"
	"github.com/zhouzirui/assistant-relay/backend/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTurnInProgress  = errors.New("a turn is already in progress for this session")
	ErrInvalidRole     = errors.New("invalid message role")
	ErrEmptyThreadID   = errors.New("thread creation returned an empty id")
)

// entry holds the mutable state of one session.
type entry struct {
	mu       sync.RWMutex
	session  chat.Session
	messages []chat.Message

	// threadMu serialises thread creation so a session binds exactly one thread.
	threadMu sync.Mutex
	turn     sync.Mutex
}

// Service is the in-memory session store. Locked and unlocked sessions live in
// separate LRU caches of maxActive entries each, so creating sessions without the
// password can only ever evict other locked sessions.
type Service struct {
	pending *lru.Cache
	active  *lru.Cache

	// promoteMu serialises moving an entry from pending to active.
	promoteMu sync.Mutex
}

// NewService bootstraps a store holding at most maxActive unlocked sessions and as
// many locked ones.
func NewService(maxActive int) (*Service, error) {
	if maxActive < 1 {
		maxActive = 1
	}

	onEvict := func(_, _ interface{}) {
		metrics.ActiveSessions.Dec()
	}
	pending, err := lru.NewWithEvict(maxActive, onEvict)
	if err != nil {
		return nil, fmt.Errorf("create pending session cache: %w", err)
	}
	active, err := lru.NewWithEvict(maxActive, onEvict)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &Service{pending: pending, active: active}, nil
}

// CreateSession provisions a fresh, locked session.
func (s *Service) CreateSession(_ context.Context) (chat.Session, error) {
	session := chat.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	s.pending.Add(session.ID, &entry{
		session:  session,
		messages: make([]chat.Message, 0, 16),
	})
	metrics.ActiveSessions.Inc()

	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session, nil
}

// Authenticate unlocks the session and moves it into the unlocked cache. The flag is
// set once and later calls leave it, and its timestamp, untouched.
func (s *Service) Authenticate(_ context.Context, sessionID string) (chat.Session, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return chat.Session{}, err
	}

	e.mu.Lock()
	if !e.session.Authenticated {
		now := time.Now().UTC()
		e.session.Authenticated = true
		e.session.AuthenticatedAt = &now
	}
	session := e.session
	e.mu.Unlock()

	if err := s.promote(sessionID, e); err != nil {
		return chat.Session{}, err
	}
	return session, nil
}

func (s *Service) promote(sessionID string, e *entry) error {
	s.promoteMu.Lock()
	defer s.promoteMu.Unlock()

	if s.active.Contains(sessionID) {
		return nil
	}
	if _, ok := s.pending.Peek(sessionID); !ok {
		// Evicted between lookup and promotion.
		return ErrSessionNotFound
	}

	// Add before Remove so lookups never miss the session mid-move.
	s.active.Add(sessionID, e)
	metrics.ActiveSessions.Inc()
	s.pending.Remove(sessionID)
	return nil
}

// EnsureThread returns the session's thread id, calling create only when none is bound.
func (s *Service) EnsureThread(ctx context.Context, sessionID string, create func(context.Context) (string, error)) (string, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return "", err
	}

	e.threadMu.Lock()
	defer e.threadMu.Unlock()

	e.mu.RLock()
	threadID := e.session.ThreadID
	e.mu.RUnlock()
	if threadID != "" {
		return threadID, nil
	}

	threadID, err = create(ctx)
	if err != nil {
		return "", err
	}
	if threadID == "" {
		return "", ErrEmptyThreadID
	}

	e.mu.Lock()
	e.session.ThreadID = threadID
	e.mu.Unlock()
	return threadID, nil
}

// AppendMessage adds a turn to the end of the session history.
func (s *Service) AppendMessage(_ context.Context, sessionID string, role chat.Role, content string) (chat.Message, error) {
	if !chat.ValidRole(role) {
		return chat.Message{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	e, err := s.lookup(sessionID)
	if err != nil {
		return chat.Message{}, err
	}

	message := chat.Message{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	e.mu.Lock()
	e.messages = append(e.messages, message)
	e.mu.Unlock()
	return message, nil
}

// LoadTranscript returns a copy of the stored messages for the session.
func (s *Service) LoadTranscript(_ context.Context, sessionID string) ([]chat.Message, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	copied := make([]chat.Message, len(e.messages))
	copy(copied, e.messages)
	return copied, nil
}

// BeginTurn claims the session for one user turn. The returned release must be called
// once the turn is over.
func (s *Service) BeginTurn(_ context.Context, sessionID string) (func(), error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	if !e.turn.TryLock() {
		return nil, ErrTurnInProgress
	}

	var once sync.Once
	return func() { once.Do(e.turn.Unlock) }, nil
}

// EndSession destroys the session and its history.
func (s *Service) EndSession(_ context.Context, sessionID string) error {
	removedActive := s.active.Remove(sessionID)
	removedPending := s.pending.Remove(sessionID)
	if !removedActive && !removedPending {
		return ErrSessionNotFound
	}
	return nil
}

// Len reports how many sessions are held, locked or not.
func (s *Service) Len() int {
	return s.active.Len() + s.pending.Len()
}

func (s *Service) lookup(sessionID string) (*entry, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	if value, ok := s.active.Get(sessionID); ok {
		return value.(*entry), nil
	}
	if value, ok := s.pending.Get(sessionID); ok {
		return value.(*entry), nil
	}
	return nil, ErrSessionNotFound
}
