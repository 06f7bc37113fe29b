package model

import "errors"

// Engine error taxonomy. Callers classify failures with errors.Is; the
// underlying cause is attached by wrapping.
var (
	// ErrPreconditionUnmet: ownership, existence or funds check failed before
	// any mutation. Fully recoverable — nothing was written.
	ErrPreconditionUnmet = errors.New("precondition unmet")

	// ErrStaleStateConflict: re-validation at execution time disagrees with
	// plan-time assumptions. The step aborts and the chain halts.
	ErrStaleStateConflict = errors.New("stale state conflict")

	// ErrNoPathFound: movement required but the destination is unreachable.
	ErrNoPathFound = errors.New("no path found")

	// ErrInvalidParameters: the intent's parameters are malformed or missing.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrExternalUnavailable: the record store or travel planner is
	// unreachable. Retried by the external driver, never by the engine.
	ErrExternalUnavailable = errors.New("external service unavailable")

	// ErrPartialChainFailure: a mutation landed and a later one in the same
	// step failed in a way the engine could not compensate. Operator work.
	ErrPartialChainFailure = errors.New("partial chain failure")
)

// Reason maps a taxonomy error to the human-readable text used in failure
// notifications. Technical causes stay in the logs.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrPreconditionUnmet):
		return "the conditions for this action were not met"
	case errors.Is(err, ErrStaleStateConflict):
		return "circumstances changed before the action could complete"
	case errors.Is(err, ErrNoPathFound):
		return "no route could be found to the destination"
	case errors.Is(err, ErrInvalidParameters):
		return "the request was malformed"
	case errors.Is(err, ErrPartialChainFailure):
		return "the action was interrupted partway; the Republic's clerks have been alerted"
	default:
		return "an unexpected problem occurred"
	}
}
