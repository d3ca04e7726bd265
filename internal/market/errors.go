package market

import "fmt"

// Error classes. Callers branch on Type to distinguish "no data for this
// symbol" from "the provider sent garbage" instead of collapsing both to a
// nil result.
const (
	ErrDataUnavailable     = "data_unavailable"
	ErrInsufficientHistory = "insufficient_history"
	ErrParseFailure        = "parse_failure"
	ErrPersistence         = "persistence"
	ErrScorer              = "scorer"
)

// DataError is the typed error for everything that can go wrong between a
// provider and the core.
type DataError struct {
	Type    string
	Symbol  string
	Message string
	Cause   error
}

func (e *DataError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error for %s: %s (%v)", e.Type, e.Symbol, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error for %s: %s", e.Type, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error { return e.Cause }

// IsType reports whether err is a DataError of the given class.
func IsType(err error, typ string) bool {
	de, ok := err.(*DataError)
	return ok && de.Type == typ
}

func NewDataUnavailableError(symbol, message string, cause error) *DataError {
	return &DataError{Type: ErrDataUnavailable, Symbol: symbol, Message: message, Cause: cause}
}

func NewInsufficientHistoryError(symbol string, got, want int) *DataError {
	return &DataError{
		Type:    ErrInsufficientHistory,
		Symbol:  symbol,
		Message: fmt.Sprintf("%d bars, need %d", got, want),
	}
}

func NewParseError(symbol, message string, cause error) *DataError {
	return &DataError{Type: ErrParseFailure, Symbol: symbol, Message: message, Cause: cause}
}

func NewPersistenceError(path string, cause error) *DataError {
	return &DataError{Type: ErrPersistence, Symbol: path, Message: "write failed", Cause: cause}
}

func NewScorerError(symbol string, cause error) *DataError {
	return &DataError{Type: ErrScorer, Symbol: symbol, Message: "scoring failed", Cause: cause}
}
