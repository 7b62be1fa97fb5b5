// Package flow runs the order interview: phase handlers turn one customer message into a
// StepResult and the Orchestrator applies it to the conversation state.
package flow

import (
	"context"
	"time"

	"github.com/lumopack/lumobot/internal/models"
)

// Phraser rewrites a fixed reply into natural wording. The genai client satisfies it.
type Phraser interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, history []models.Message) (string, error)
}

// Pricer prices an assembled requirement. The pricing calculator satisfies it.
type Pricer interface {
	Estimate(req models.PricingRequest) (models.Breakdown, error)
}

// OrderSaver records confirmed orders.
type OrderSaver interface {
	SaveOrder(ctx context.Context, order models.Order) error
}

// DepositRate is the share of the grand total due as deposit.
const DepositRate = 0.5

// Opts holds the optional collaborators of an Orchestrator.
type Opts struct {
	Phraser Phraser
	Orders  OrderSaver
	Clock   func() time.Time
	OrderID func() string
}

// Option configures an Orchestrator.
type Option func(*Opts)

// WithPhraser enables phrased greetings, re-prompts and preview descriptions.
func WithPhraser(p Phraser) Option {
	return func(o *Opts) {
		o.Phraser = p
	}
}

// WithOrderSaver records confirmed orders when the interview ends.
func WithOrderSaver(s OrderSaver) Option {
	return func(o *Opts) {
		o.Orders = s
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *Opts) {
		o.Clock = now
	}
}

// WithOrderIDs overrides the order identifier source.
func WithOrderIDs(next func() string) Option {
	return func(o *Opts) {
		o.OrderID = next
	}
}

// deps is what handlers may use. Handlers read state and deps, never mutate state.
type deps struct {
	phraser Phraser
	pricer  Pricer
	orders  OrderSaver
	now     func() time.Time
	orderID func() string
}
