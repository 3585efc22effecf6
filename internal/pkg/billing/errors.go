package billing

import "fmt"

// ErrorType classifies engine errors so callers can decide between
// terminal and retryable handling without string matching.
type ErrorType int

const (
	ErrorTypeFailure ErrorType = iota
	ErrorTypeValidation
	ErrorTypeNotFound
	ErrorTypeUnauthorized
	ErrorTypeForbidden
	ErrorTypeConflict
	ErrorTypeStateConflict
	ErrorTypeAmountMismatch
	ErrorTypeGatewayUnavailable
	ErrorTypePersistence
)

// Error is the typed result error used at every engine boundary.
type Error struct {
	Code    string
	Message string
	Type    ErrorType
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Retryable reports whether a caller may safely retry the operation.
// Replays are at-least-once safe because finalization is idempotent.
func (e *Error) Retryable() bool {
	return e.Type == ErrorTypeGatewayUnavailable || e.Type == ErrorTypePersistence
}

func NewError(code, message string, t ErrorType) *Error {
	return &Error{Code: code, Message: message, Type: t}
}

func ValidationError(code, message string) *Error {
	return NewError(code, message, ErrorTypeValidation)
}

func NotFoundError(code, message string) *Error {
	return NewError(code, message, ErrorTypeNotFound)
}

func ConflictError(code, message string) *Error {
	return NewError(code, message, ErrorTypeConflict)
}

func PersistenceError(code string, err error) *Error {
	return NewError(code, err.Error(), ErrorTypePersistence)
}

// Well-known engine errors.
var (
	ErrTransactionNotFound = NewError("Transaction.NotFound", "transaction not found", ErrorTypeNotFound)
	ErrMembershipNotFound  = NewError("Membership.NotFound", "no active membership found", ErrorTypeNotFound)
	ErrPlanNotFound        = NewError("Membership.PlanNotFound", "plan not found", ErrorTypeNotFound)
	ErrAmountMismatch      = NewError("Payment.AmountMismatch", "event amount does not match transaction amount", ErrorTypeAmountMismatch)
	ErrStateConflict       = NewError("Transaction.StateConflict", "event contradicts recorded terminal status", ErrorTypeStateConflict)
	ErrAlreadyFinalized    = NewError("Transaction.AlreadyFinalized", "transaction already finalized", ErrorTypeConflict)
)
