// This file implements a Redis-backed store. Sessions may expire with a TTL; orders never do.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/lumopack/lumobot/internal/models"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key the Redis store writes.
const DefaultKeyPrefix = "lumobot"

// RedisStore keeps each session as a JSON value with an index set of session IDs.
type RedisStore struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to the Redis server named by WithRedisAddr.
func NewRedisStore(opts ...Option) (*RedisStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("redis address not set")
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		slog.Error("RedisStore ping failed", "error", err)
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	slog.Debug("RedisStore.NewRedisStore: connected", "prefix", prefix, "ttl", cfg.SessionTTL)
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: cfg.SessionTTL}, nil
}

func (s *RedisStore) sessionKey(id string) string { return s.prefix + ":session:" + id }
func (s *RedisStore) sessionIndex() string { return s.prefix + ":sessions" }
func (s *RedisStore) orderKey(id string) string { return s.prefix + ":order:" + id }

// orderIndex names the set of order IDs of a session, or of all orders for "".
func (s *RedisStore) orderIndex(sessionID string) string {
	if sessionID == "" {
		return s.prefix + ":orders"
	}
	return s.prefix + ":orders:" + sessionID
}

// SaveSession writes a session and adds it to the index.
func (s *RedisStore) SaveSession(ctx context.Context, state *models.ConversationState) error {
	data, err := encodeState(state)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, s.sessionKey(state.SessionID), data, s.ttl)
		p.SAdd(ctx, s.sessionIndex(), state.SessionID)
		return nil
	})
	if err != nil {
		slog.Error("RedisStore SaveSession failed", "error", err, "session", state.SessionID)
		return fmt.Errorf("failed to save session %s: %w", state.SessionID, err)
	}
	return nil
}

// LoadSession reads a session, or nil if it does not exist or has expired.
func (s *RedisStore) LoadSession(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	data, err := s.rdb.Get(ctx, s.sessionKey(sessionID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		slog.Error("RedisStore LoadSession failed", "error", err, "session", sessionID)
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return decodeState(data)
}

// DeleteSession removes a session and its index entry.
func (s *RedisStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, s.sessionKey(sessionID))
		p.SRem(ctx, s.sessionIndex(), sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// ListSessions returns summaries of live sessions and prunes index entries whose key expired.
func (s *RedisStore) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	ids, err := s.rdb.SMembers(ctx, s.sessionIndex()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	out := make([]models.SessionSummary, 0, len(ids))
	var stale []interface{}
	for _, id := range ids {
		state, err := s.LoadSession(ctx, id)
		if err != nil {
			return nil, err
		}
		if state == nil {
			stale = append(stale, id)
			continue
		}
		out = append(out, state.Summary())
	}
	if len(stale) > 0 {
		if err := s.rdb.SRem(ctx, s.sessionIndex(), stale...).Err(); err != nil {
			slog.Warn("RedisStore ListSessions failed to prune index", "error", err, "stale", len(stale))
		}
	}
	sortSummaries(out)
	return out, nil
}

// DeleteInactiveSessions removes sessions whose last activity is before cutoff.
func (s *RedisStore) DeleteInactiveSessions(ctx context.Context, cutoff time.Time) (int, error) {
	summaries, err := s.ListSessions(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, summary := range summaries {
		if !summary.LastActivity.Before(cutoff) {
			continue
		}
		if err := s.DeleteSession(ctx, summary.SessionID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// SaveOrder writes an order without expiry and indexes it by session.
func (s *RedisStore) SaveOrder(ctx context.Context, order models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order %s: %w", order.ID, err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, s.orderKey(order.ID), data, 0)
		p.SAdd(ctx, s.orderIndex(order.SessionID), order.ID)
		p.SAdd(ctx, s.orderIndex(""), order.ID)
		return nil
	})
	if err != nil {
		slog.Error("RedisStore SaveOrder failed", "error", err, "order", order.ID)
		return fmt.Errorf("failed to save order %s: %w", order.ID, err)
	}
	return nil
}

// GetOrder reads an order, or nil if none exists.
func (s *RedisStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	data, err := s.rdb.Get(ctx, s.orderKey(orderID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	var order models.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("failed to decode order %s: %w", orderID, err)
	}
	return &order, nil
}

// ListOrders returns the orders of a session, or all orders when sessionID is empty.
func (s *RedisStore) ListOrders(ctx context.Context, sessionID string) ([]models.Order, error) {
	ids, err := s.rdb.SMembers(ctx, s.orderIndex(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	var out []models.Order
	for _, id := range ids {
		order, err := s.GetOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		if order != nil {
			out = append(out, *order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
