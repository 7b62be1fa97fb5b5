// Package store provides storage backends for conversation sessions and confirmed orders.
//
// It includes an in-memory store, SQLite and PostgreSQL stores, and a Redis session store.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lumopack/lumobot/internal/models"
)

// SessionStore persists conversation states. Load returns nil, nil for an unknown session.
//
// Implementations are safe for concurrent use, but a session is expected to have a single
// writer at a time; callers serialize turns of the same session.
type SessionStore interface {
	LoadSession(ctx context.Context, sessionID string) (*models.ConversationState, error)
	SaveSession(ctx context.Context, state *models.ConversationState) error
	DeleteSession(ctx context.Context, sessionID string) error
	ListSessions(ctx context.Context) ([]models.SessionSummary, error)
	// DeleteInactiveSessions removes sessions idle since before cutoff and returns how many.
	DeleteInactiveSessions(ctx context.Context, cutoff time.Time) (int, error)
}

// OrderStore persists confirmed orders. GetOrder returns nil, nil for an unknown order.
type OrderStore interface {
	SaveOrder(ctx context.Context, order models.Order) error
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListOrders(ctx context.Context, sessionID string) ([]models.Order, error)
}

// Store is a backend holding both sessions and orders.
type Store interface {
	SessionStore
	OrderStore
	Close() error
}

// Opts holds configuration for store backends.
type Opts struct {
	DSN           string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Prefix        string
	SessionTTL    time.Duration
}

// Option configures a store backend.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return WithDSN(dsn)
}

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return WithDSN(dsn)
}

// WithRedisAddr sets the Redis server address.
func WithRedisAddr(addr string) Option {
	return func(o *Opts) {
		o.RedisAddr = addr
	}
}

// WithRedisPassword sets the Redis AUTH password.
func WithRedisPassword(password string) Option {
	return func(o *Opts) {
		o.RedisPassword = password
	}
}

// WithRedisDB selects the Redis logical database.
func WithRedisDB(db int) Option {
	return func(o *Opts) {
		o.RedisDB = db
	}
}

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(o *Opts) {
		o.Prefix = prefix
	}
}

// WithSessionTTL expires idle Redis sessions after ttl. Zero keeps them until deleted.
func WithSessionTTL(ttl time.Duration) Option {
	return func(o *Opts) {
		o.SessionTTL = ttl
	}
}

// DetectDSNType returns "postgres" for PostgreSQL connection strings and "sqlite3" otherwise.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite3"
}

// encodeState and decodeState round trip a state through JSON, which also deep copies it.
func encodeState(state *models.ConversationState) ([]byte, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session %s: %w", state.SessionID, err)
	}
	return data, nil
}

func decodeState(data []byte) (*models.ConversationState, error) {
	var state models.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &state, nil
}

func sortSummaries(out []models.SessionSummary) {
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivity.After(out[j].LastActivity)
	})
}

// InMemoryStore keeps sessions and orders in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	orders   map[string]models.Order
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string][]byte),
		orders:   make(map[string]models.Order),
	}
}

func (s *InMemoryStore) LoadSession(_ context.Context, sessionID string) (*models.ConversationState, error) {
	s.mu.RLock()
	data, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return decodeState(data)
}

func (s *InMemoryStore) SaveSession(_ context.Context, state *models.ConversationState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions[state.SessionID] = data
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) ListSessions(_ context.Context) ([]models.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SessionSummary, 0, len(s.sessions))
	for _, data := range s.sessions {
		state, err := decodeState(data)
		if err != nil {
			return nil, err
		}
		out = append(out, state.Summary())
	}
	sortSummaries(out)
	return out, nil
}

func (s *InMemoryStore) DeleteInactiveSessions(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, data := range s.sessions {
		state, err := decodeState(data)
		if err != nil {
			return removed, err
		}
		if state.LastActivity.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemoryStore) SaveOrder(_ context.Context, order models.Order) error {
	s.mu.Lock()
	s.orders[order.ID] = order
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) GetOrder(_ context.Context, orderID string) (*models.Order, error) {
	s.mu.RLock()
	order, ok := s.orders[orderID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (s *InMemoryStore) ListOrders(_ context.Context, sessionID string) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Order
	for _, o := range s.orders {
		if sessionID == "" || o.SessionID == sessionID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
