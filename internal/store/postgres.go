// This file implements a PostgreSQL-backed store for sessions and orders.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/lumopack/lumobot/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

// SaveSession stores or updates a conversation state.
func (s *PostgresStore) SaveSession(ctx context.Context, state *models.ConversationState) error {
	args, err := sessionArgs(state)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO sessions (session_id, user_id, current_step, is_complete, state_data, created_at, last_activity)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id)
		DO UPDATE SET
			user_id = EXCLUDED.user_id,
			current_step = EXCLUDED.current_step,
			is_complete = EXCLUDED.is_complete,
			state_data = EXCLUDED.state_data,
			last_activity = EXCLUDED.last_activity`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "session", state.SessionID)
		return fmt.Errorf("failed to save session %s: %w", state.SessionID, err)
	}
	slog.Debug("PostgresStore SaveSession succeeded", "session", state.SessionID, "step", int(state.CurrentStep))
	return nil
}

// LoadSession retrieves a conversation state, or nil if none exists.
func (s *PostgresStore) LoadSession(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT state_data FROM sessions WHERE session_id = $1`, sessionID).Scan(&data)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore LoadSession not found", "session", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore LoadSession failed", "error", err, "session", sessionID)
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	return decodeState(data)
}

// DeleteSession removes a conversation state.
func (s *PostgresStore) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID); err != nil {
		slog.Error("PostgresStore DeleteSession failed", "error", err, "session", sessionID)
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}
	return nil
}

// ListSessions returns session summaries, most recently active first.
func (s *PostgresStore) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, user_id, current_step, is_complete, created_at, last_activity
		FROM sessions ORDER BY last_activity DESC`)
	if err != nil {
		slog.Error("PostgresStore ListSessions query failed", "error", err)
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()
	out := []models.SessionSummary{}
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore ListSessions rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	return out, nil
}

// DeleteInactiveSessions removes sessions whose last activity is before cutoff.
func (s *PostgresStore) DeleteInactiveSessions(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_activity < $1`, cutoff.UTC())
	if err != nil {
		slog.Error("PostgresStore DeleteInactiveSessions failed", "error", err)
		return 0, fmt.Errorf("failed to delete inactive sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	slog.Debug("PostgresStore DeleteInactiveSessions succeeded", "removed", n)
	return int(n), nil
}

// SaveOrder stores or updates an order.
func (s *PostgresStore) SaveOrder(ctx context.Context, order models.Order) error {
	args, err := orderArgs(order)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id)
		DO UPDATE SET
			status = EXCLUDED.status,
			requirement = EXCLUDED.requirement,
			quote = EXCLUDED.quote,
			grand_total = EXCLUDED.grand_total,
			deposit = EXCLUDED.deposit`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		slog.Error("PostgresStore SaveOrder failed", "error", err, "order", order.ID)
		return fmt.Errorf("failed to save order %s: %w", order.ID, err)
	}
	slog.Debug("PostgresStore SaveOrder succeeded", "order", order.ID, "session", order.SessionID)
	return nil
}

// GetOrder retrieves an order, or nil if none exists.
func (s *PostgresStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	order, err := scanOrder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetOrder failed", "error", err, "order", orderID)
		return nil, fmt.Errorf("failed to get order %s: %w", orderID, err)
	}
	return &order, nil
}

// ListOrders returns the orders of a session, or all orders when sessionID is empty.
func (s *PostgresStore) ListOrders(ctx context.Context, sessionID string) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = $1`
		args = append(args, sessionID)
	}
	rows, err := s.db.QueryContext(ctx, query+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()
	var out []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		out = append(out, order)
	}
	return out, rows.Err()
}

// Close closes the PostgreSQL database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing PostgreSQL database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close PostgreSQL database", "error", err)
	}
	return err
}
