package billing

import (
	"github.com/mapforge-io/mapforge/app/models"
)

// TransactionEvent drives the transaction state machine.
type TransactionEvent string

const (
	EventConfirmSuccess  TransactionEvent = "confirm_success"
	EventConfirmFailure  TransactionEvent = "confirm_failure"
	EventCancelRequested TransactionEvent = "cancel_requested"
)

// targetStatus maps an event to the terminal status it drives toward.
func (e TransactionEvent) targetStatus() (string, bool) {
	switch e {
	case EventConfirmSuccess:
		return models.TransactionStatusSuccess, true
	case EventConfirmFailure:
		return models.TransactionStatusFailed, true
	case EventCancelRequested:
		return models.TransactionStatusCancelled, true
	default:
		return "", false
	}
}

// TransitionResult describes the outcome of applying an event.
type TransitionResult struct {
	// NextStatus is the status the transaction holds after the event.
	NextStatus string
	// Applied is true when the event caused a Pending -> terminal move.
	Applied bool
	// Idempotent is true when the event matched an already recorded
	// terminal status: a no-op success, not an error.
	Idempotent bool
}

// ApplyEvent validates an event against the current transaction status.
// Transitions are monotonic: Pending moves to exactly one terminal status,
// a repeated event with the same outcome is an idempotent no-op, and a
// contradicting event returns ErrStateConflict with the original status
// preserved.
func ApplyEvent(current string, event TransactionEvent) (TransitionResult, *Error) {
	target, ok := event.targetStatus()
	if !ok {
		return TransitionResult{}, ValidationError("Transaction.UnknownEvent", "unknown transaction event")
	}

	if models.IsTerminalTransactionStatus(current) {
		if current == target {
			return TransitionResult{NextStatus: current, Idempotent: true}, nil
		}
		return TransitionResult{NextStatus: current}, ErrStateConflict
	}

	if current != models.TransactionStatusPending {
		return TransitionResult{}, ValidationError("Transaction.UnknownStatus", "transaction has unknown status")
	}

	return TransitionResult{NextStatus: target, Applied: true}, nil
}
