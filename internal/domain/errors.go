package domain

import "fmt"

// ErrorKind is the machine-readable classification carried by every
// error the orchestration core returns. Clients render Message directly.
type ErrorKind string

const (
	KindValidation             ErrorKind = "VALIDATION_ERROR"
	KindInvalidState           ErrorKind = "INVALID_STATE_ERROR"
	KindAuthorization          ErrorKind = "AUTHORIZATION_ERROR"
	KindDeadlineExceeded       ErrorKind = "DEADLINE_EXCEEDED_ERROR"
	KindConcurrentModification ErrorKind = "CONCURRENT_MODIFICATION_ERROR"
	KindPayment                ErrorKind = "PAYMENT_ERROR"
	KindInsufficientFunds      ErrorKind = "INSUFFICIENT_FUNDS_ERROR"
	KindRateLimit              ErrorKind = "RATE_LIMIT_ERROR"
	KindOtpMismatch            ErrorKind = "OTP_MISMATCH_ERROR"
	KindOtpExpired             ErrorKind = "OTP_EXPIRED_ERROR"
	KindNotFound               ErrorKind = "NOT_FOUND_ERROR"
)

// Error is the typed error returned by every command operation. A failed
// operation never mutates entity state.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets callers match on kind with errors.Is, e.g.
// errors.Is(err, &domain.Error{Kind: domain.KindInvalidState}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func ValidationError(format string, args ...any) *Error {
	return newError(KindValidation, format, args...)
}

func InvalidStateError(format string, args ...any) *Error {
	return newError(KindInvalidState, format, args...)
}

func AuthorizationError(format string, args ...any) *Error {
	return newError(KindAuthorization, format, args...)
}

func DeadlineExceededError(format string, args ...any) *Error {
	return newError(KindDeadlineExceeded, format, args...)
}

func ConcurrentModificationError(format string, args ...any) *Error {
	return newError(KindConcurrentModification, format, args...)
}

func PaymentError(format string, args ...any) *Error {
	return newError(KindPayment, format, args...)
}

func InsufficientFundsError(format string, args ...any) *Error {
	return newError(KindInsufficientFunds, format, args...)
}

func RateLimitError(format string, args ...any) *Error {
	return newError(KindRateLimit, format, args...)
}

func OtpMismatchError(format string, args ...any) *Error {
	return newError(KindOtpMismatch, format, args...)
}

func OtpExpiredError(format string, args ...any) *Error {
	return newError(KindOtpExpired, format, args...)
}

func NotFoundError(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

// AlreadySignedError is the specific invalid-state failure for a repeated
// signature on the same contract slot.
func AlreadySignedError(actorID string) *Error {
	return InvalidStateError("actor %s has already signed this contract", actorID)
}

// KindOf extracts the ErrorKind from err, or "" if err is not a *Error.
func KindOf(err error) ErrorKind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
