package crosssection

import (
	"context"
	"errors"
	"fmt"
)

// Sentinels matched by errors.Is against the typed errors below.
var (
	ErrSchema          = errors.New("schema error")
	ErrFeatureNotFound = errors.New("feature not found")
	ErrEmptyInput      = errors.New("empty input")
	ErrJoinCollision   = errors.New("join collision")
)

// SchemaError reports a missing or wrongly typed date or feature column.
type SchemaError struct {
	Ticker string
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Ticker == "" {
		return fmt.Sprintf("schema error: column %q: %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("schema error: ticker %s: column %q: %s", e.Ticker, e.Column, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// FeatureNotFoundError reports a feature column absent from one ticker's table.
type FeatureNotFoundError struct {
	Ticker  string
	Feature string
}

func (e *FeatureNotFoundError) Error() string {
	return fmt.Sprintf("feature %q not found for ticker %s", e.Feature, e.Ticker)
}

func (e *FeatureNotFoundError) Is(target error) bool { return target == ErrFeatureNotFound }

// EmptyInputError reports that a feature had nothing to assemble.
type EmptyInputError struct {
	Feature string
	Reason  string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("empty input for feature %q: %s", e.Feature, e.Reason)
}

func (e *EmptyInputError) Is(target error) bool { return target == ErrEmptyInput }

// JoinCollisionError describes a ticker identifier supplied more than once.
// It is never returned by Assemble; the later occurrence is renamed and the
// condition is logged and counted.
type JoinCollisionError struct {
	Ticker  string
	Renamed string
}

func (e *JoinCollisionError) Error() string {
	return fmt.Sprintf("ticker %s supplied more than once, renamed to %s", e.Ticker, e.Renamed)
}

func (e *JoinCollisionError) Is(target error) bool { return target == ErrJoinCollision }

// errorKind labels an error for metrics.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrSchema):
		return "schema"
	case errors.Is(err, ErrFeatureNotFound):
		return "feature_not_found"
	case errors.Is(err, ErrEmptyInput):
		return "empty_input"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "other"
	}
}
