package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lumopack/lumobot/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// orderColumns must match the order scanOrder reads them in.
const orderColumns = `id, session_id, user_id, status, requirement, quote, grand_total, deposit, created_at`

// orderArgs returns the insert arguments for orderColumns.
func orderArgs(o models.Order) ([]interface{}, error) {
	req, err := json.Marshal(o.Requirement)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order %s requirement: %w", o.ID, err)
	}
	var quote interface{}
	if o.Quote != nil {
		q, err := json.Marshal(o.Quote)
		if err != nil {
			return nil, fmt.Errorf("failed to encode order %s quote: %w", o.ID, err)
		}
		quote = string(q)
	}
	return []interface{}{
		o.ID, o.SessionID, nilIfEmpty(o.UserID), string(o.Status), string(req), quote,
		o.GrandTotal, o.Deposit, o.CreatedAt.UTC(),
	}, nil
}

// scanOrder scans an Order from a row selected with orderColumns.
func scanOrder(row rowScanner) (models.Order, error) {
	var o models.Order
	var userID, quote sql.NullString
	var status, req string
	err := row.Scan(&o.ID, &o.SessionID, &userID, &status, &req, &quote, &o.GrandTotal, &o.Deposit, &o.CreatedAt)
	if err != nil {
		return o, err
	}
	o.UserID = userID.String
	o.Status = models.OrderStatus(status)
	if err := json.Unmarshal([]byte(req), &o.Requirement); err != nil {
		return o, fmt.Errorf("failed to decode order %s requirement: %w", o.ID, err)
	}
	if quote.Valid && quote.String != "" {
		var b models.Breakdown
		if err := json.Unmarshal([]byte(quote.String), &b); err != nil {
			return o, fmt.Errorf("failed to decode order %s quote: %w", o.ID, err)
		}
		o.Quote = &b
	}
	return o, nil
}

// scanSummary scans a SessionSummary from session_id, user_id, current_step,
// is_complete, created_at, last_activity.
func scanSummary(row rowScanner) (models.SessionSummary, error) {
	var s models.SessionSummary
	var userID sql.NullString
	var step int
	if err := row.Scan(&s.SessionID, &userID, &step, &s.Complete, &s.CreatedAt, &s.LastActivity); err != nil {
		return s, fmt.Errorf("scan session summary failed: %w", err)
	}
	s.UserID = userID.String
	s.CurrentStep = models.Step(step)
	return s, nil
}

// sessionArgs returns the upsert arguments for a session row. Times are stored in UTC
// so SQLite text comparison orders them.
func sessionArgs(state *models.ConversationState) ([]interface{}, error) {
	data, err := encodeState(state)
	if err != nil {
		return nil, err
	}
	summary := state.Summary()
	return []interface{}{
		state.SessionID, nilIfEmpty(state.UserID), int(state.CurrentStep), summary.Complete,
		string(data), state.CreatedAt.UTC(), state.LastActivity.UTC(),
	}, nil
}
