// Package models defines the core data types shared by every stage of the
// backtesting pipeline: the options chain, strategy/leg definitions,
// candidates, positions, trades, and the error taxonomy components use to
// report failures back to the tool-surface facade.
package models

import "fmt"

// SchemaError indicates the input chain is missing a required column or no
// recognised timestamp column could be found.
type SchemaError struct {
	Msg string
}

func (e *SchemaError) Error() string { return fmt.Sprintf("schema error: %s", e.Msg) }

// NewSchemaError builds a SchemaError with a formatted message.
func NewSchemaError(format string, args ...any) *SchemaError {
	return &SchemaError{Msg: fmt.Sprintf(format, args...)}
}

// DataUnavailableError indicates no chain has been loaded for the requested
// symbol/date range.
type DataUnavailableError struct {
	Msg string
}

func (e *DataUnavailableError) Error() string { return fmt.Sprintf("data unavailable: %s", e.Msg) }

// NewDataUnavailableError builds a DataUnavailableError with a formatted message.
func NewDataUnavailableError(format string, args ...any) *DataUnavailableError {
	return &DataUnavailableError{Msg: fmt.Sprintf(format, args...)}
}

// StrategyNotFoundError indicates the requested strategy name has no entry
// in the catalogue.
type StrategyNotFoundError struct {
	Name string
}

func (e *StrategyNotFoundError) Error() string {
	return fmt.Sprintf("strategy not found: %q", e.Name)
}

// NewStrategyNotFoundError builds a StrategyNotFoundError for name.
func NewStrategyNotFoundError(name string) *StrategyNotFoundError {
	return &StrategyNotFoundError{Name: name}
}

// ValidationError indicates a caller-supplied parameter is out of range or
// internally inconsistent.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("validation error: %s", e.Msg) }

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InsufficientDataError indicates no entry candidates survived filtering.
type InsufficientDataError struct {
	Msg string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %s", e.Msg)
}

// NewInsufficientDataError builds an InsufficientDataError with a formatted message.
func NewInsufficientDataError(format string, args ...any) *InsufficientDataError {
	return &InsufficientDataError{Msg: fmt.Sprintf(format, args...)}
}

// InsufficientCapitalError is non-fatal: the event loop skips an entry it
// cannot afford and counts it in the run result (InsufficientCapitalSkips)
// rather than propagating a run failure, per spec §7's recovery policy.
type InsufficientCapitalError struct {
	Msg string
}

func (e *InsufficientCapitalError) Error() string {
	return fmt.Sprintf("insufficient capital: %s", e.Msg)
}

// NewInsufficientCapitalError builds an InsufficientCapitalError with a formatted message.
func NewInsufficientCapitalError(format string, args ...any) *InsufficientCapitalError {
	return &InsufficientCapitalError{Msg: fmt.Sprintf(format, args...)}
}

// NumericDegenerateError annotates a metric that could not be computed from
// a well-defined ratio (e.g. a flat equity curve). Callers that hit this
// should still produce a result using the §4.10 convention rather than
// failing the run.
type NumericDegenerateError struct {
	Msg string
}

func (e *NumericDegenerateError) Error() string {
	return fmt.Sprintf("numeric degenerate: %s", e.Msg)
}

// NewNumericDegenerateError builds a NumericDegenerateError with a formatted message.
func NewNumericDegenerateError(format string, args ...any) *NumericDegenerateError {
	return &NumericDegenerateError{Msg: fmt.Sprintf(format, args...)}
}
