package types

import "errors"

// Sentinel errors for the retrieval and optimization core. Callers classify
// failures with errors.Is; wrapped detail travels via fmt.Errorf("%w").
var (
	// ErrDataNotFound means no tier (cache, store, collector) had any data.
	ErrDataNotFound = errors.New("data not found")

	// ErrCircuitOpen means the collector was skipped because its circuit
	// breaker is open and no fallback data existed.
	ErrCircuitOpen = errors.New("circuit open")

	// ErrCollector means the external collector call failed.
	ErrCollector = errors.New("collector error")

	// ErrStore means the persistence layer failed.
	ErrStore = errors.New("store error")

	// ErrValidation means the request or constraints were malformed.
	ErrValidation = errors.New("validation error")

	// ErrSyncInProgress means a refresh for the tuple is already running,
	// either in this process or in another instance holding the sync lock.
	ErrSyncInProgress = errors.New("sync already in progress")
)

// ErrorCode is the wire-level error classification exposed by the API.
type ErrorCode string

// ErrorCode values enumerate the user-visible failure kinds.
const (
	CodeDataNotFound       ErrorCode = "DATA_NOT_FOUND"
	CodeCircuitOpen        ErrorCode = "CIRCUIT_OPEN"
	CodeCollectorError     ErrorCode = "COLLECTOR_ERROR"
	CodeStoreError         ErrorCode = "STORE_ERROR"
	CodeValidationError    ErrorCode = "VALIDATION_ERROR"
	CodeNoFeasibleSchedule ErrorCode = "NO_FEASIBLE_SCHEDULE"
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// CodeFor maps an error to its wire-level code. Unrecognized errors are
// reported as opaque internal errors.
func CodeFor(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrDataNotFound):
		return CodeDataNotFound
	case errors.Is(err, ErrCircuitOpen):
		return CodeCircuitOpen
	case errors.Is(err, ErrCollector):
		return CodeCollectorError
	case errors.Is(err, ErrStore):
		return CodeStoreError
	case errors.Is(err, ErrValidation):
		return CodeValidationError
	default:
		return CodeInternal
	}
}
