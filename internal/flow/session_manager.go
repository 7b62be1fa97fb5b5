package flow

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lumopack/lumobot/internal/extract"
	"github.com/lumopack/lumobot/internal/models"
	"github.com/lumopack/lumobot/internal/store"
	"github.com/lumopack/lumobot/internal/util"
)

// Reply is the outcome of one handled customer message.
type Reply struct {
	SessionID    string                    `json:"session_id"`
	Text         string                    `json:"response"`
	Step         models.Step               `json:"current_step"`
	Complete     bool                      `json:"is_complete"`
	QuickReplies []string                  `json:"quick_replies,omitempty"`
	State        *models.ConversationState `json:"-"`
}

// SessionManager loads a session, runs one turn through the Orchestrator and saves it.
// Turns of the same session are serialized; different sessions run concurrently.
type SessionManager struct {
	store        store.SessionStore
	orchestrator *Orchestrator
	now          func() time.Time
	locks        keyedMutex
}

// NewSessionManager creates a SessionManager over s.
func NewSessionManager(s store.SessionStore, o *Orchestrator) *SessionManager {
	return &SessionManager{store: s, orchestrator: o, now: o.deps.now}
}

// Handle processes text for sessionID, creating the session when it does not exist.
// An empty sessionID starts a new session.
func (m *SessionManager) Handle(ctx context.Context, sessionID, userID, text string) (Reply, error) {
	if strings.TrimSpace(text) == "" {
		return Reply{}, models.ErrEmptyMessage
	}
	if sessionID == "" {
		sessionID = util.NewSessionID()
	}
	unlock := m.locks.lock(sessionID)
	defer unlock()

	state, err := m.store.LoadSession(ctx, sessionID)
	if err != nil {
		return Reply{}, models.NewFlowError(models.KindPersistence, "", "failed to load session", err)
	}
	if state == nil {
		slog.Info("SessionManager.Handle: new session", "session", sessionID, "user", userID)
		state = models.NewConversationState(sessionID, userID, m.now())
	}
	if state.CurrentStep == models.StepEnd && strings.Contains(extract.Normalize(text), RestartKeyword) {
		slog.Info("SessionManager.Handle: restarting completed session", "session", sessionID)
		state.Reset(m.now())
	}

	response, err := m.orchestrator.ProcessMessage(ctx, text, state)
	if err != nil {
		return Reply{}, err
	}
	if err := m.store.SaveSession(ctx, state); err != nil {
		return Reply{}, models.NewFlowError(models.KindPersistence, "", "failed to save session", err)
	}
	return Reply{
		SessionID:    sessionID,
		Text:         response,
		Step:         state.CurrentStep,
		Complete:     state.Complete,
		QuickReplies: QuickReplies(state),
		State:        state,
	}, nil
}

// Get returns the state of a session or ErrSessionNotFound.
func (m *SessionManager) Get(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	state, err := m.store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, models.NewFlowError(models.KindPersistence, "", "failed to load session", err)
	}
	if state == nil {
		return nil, models.ErrSessionNotFound
	}
	return state, nil
}

// Delete removes a session.
func (m *SessionManager) Delete(ctx context.Context, sessionID string) error {
	unlock := m.locks.lock(sessionID)
	defer unlock()
	if _, err := m.Get(ctx, sessionID); err != nil {
		return err
	}
	if err := m.store.DeleteSession(ctx, sessionID); err != nil {
		return models.NewFlowError(models.KindPersistence, "", "failed to delete session", err)
	}
	return nil
}

// Reset returns a session to the greeting with no data.
func (m *SessionManager) Reset(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	unlock := m.locks.lock(sessionID)
	defer unlock()
	state, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state.Reset(m.now())
	if err := m.store.SaveSession(ctx, state); err != nil {
		return nil, models.NewFlowError(models.KindPersistence, "", "failed to save session", err)
	}
	return state, nil
}

// List returns all session summaries.
func (m *SessionManager) List(ctx context.Context) ([]models.SessionSummary, error) {
	return m.store.ListSessions(ctx)
}

// History returns up to limit of the latest messages of a session.
func (m *SessionManager) History(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	state, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return state.History(limit), nil
}

// Cleanup removes sessions idle for longer than maxAge.
func (m *SessionManager) Cleanup(ctx context.Context, maxAge time.Duration) (int, error) {
	removed, err := m.store.DeleteInactiveSessions(ctx, m.now().Add(-maxAge))
	if err != nil {
		return 0, models.NewFlowError(models.KindPersistence, "", "failed to clean up sessions", err)
	}
	if removed > 0 {
		slog.Info("SessionManager.Cleanup: removed inactive sessions", "removed", removed, "max_age", maxAge)
	}
	return removed, nil
}

// keyedMutex hands out one mutex per key and forgets it once no holder is left.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
