package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures inside the interview engine.
type ErrorKind string

const (
	KindExtractionMiss     ErrorKind = "extraction_miss"
	KindValidationFailure  ErrorKind = "validation_failure"
	KindPricingComputation ErrorKind = "pricing_computation"
	KindPersistence        ErrorKind = "persistence"
	KindRouting            ErrorKind = "routing"
)

// Sentinel errors matching each kind with errors.Is.
var (
	ErrExtractionMiss     = errors.New("extraction miss")
	ErrValidationFailure  = errors.New("validation failure")
	ErrPricingComputation = errors.New("pricing computation error")
	ErrPersistence        = errors.New("persistence failure")
	ErrRouting            = errors.New("routing failure")

	ErrSessionNotFound = errors.New("session not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrEmptyMessage    = errors.New("message cannot be empty")
)

var kindSentinels = map[ErrorKind]error{
	KindExtractionMiss:     ErrExtractionMiss,
	KindValidationFailure:  ErrValidationFailure,
	KindPricingComputation: ErrPricingComputation,
	KindPersistence:        ErrPersistence,
	KindRouting:            ErrRouting,
}

// FlowError is a classified engine error.
type FlowError struct {
	Kind    ErrorKind
	Field   string
	Message string
	Err     error
}

// NewFlowError builds a FlowError of kind for field.
func NewFlowError(kind ErrorKind, field, message string, err error) *FlowError {
	return &FlowError{Kind: kind, Field: field, Message: message, Err: err}
}

func (e *FlowError) Error() string {
	msg := string(e.Kind)
	if e.Field != "" {
		msg += " (" + e.Field + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *FlowError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf returns the kind of the first FlowError in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}
