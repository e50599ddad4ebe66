package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrLockHeld     = errors.New("lock already held")

	// Scheduling errors.
	ErrInvalidSchedule = errors.New("invalid schedule")
	ErrNotOpenYet      = errors.New("competition not open yet")
	ErrClosed          = errors.New("competition closed")
	ErrNotYetEnded     = errors.New("competition not yet ended")

	// State conflicts.
	ErrCompetitionInactive = errors.New("competition inactive")
	ErrAlreadyJoined       = errors.New("already joined")
	ErrNothingToWithdraw   = errors.New("nothing to withdraw")

	// Input shape errors.
	ErrMalformedQuestionSet = errors.New("malformed question set")
	ErrAnswerCountMismatch  = errors.New("answer count mismatch")
	ErrNotAParticipant      = errors.New("not a participant")
	ErrInvalidAsset         = errors.New("invalid asset address")
	ErrInvalidEntryFee      = errors.New("invalid entry fee")

	// Payment errors.
	ErrWrongFee   = errors.New("wrong entry fee")
	ErrFeeTooHigh = errors.New("fee percent above ceiling")
)

// ErrorCategory groups domain errors for transport-level mapping (HTTP
// status codes, notification severity). Every error is a precondition
// violation detected before any mutation.
type ErrorCategory string

const (
	CategoryScheduling    ErrorCategory = "scheduling"
	CategoryAuthorization ErrorCategory = "authorization"
	CategoryStateConflict ErrorCategory = "state_conflict"
	CategoryInputShape    ErrorCategory = "input_shape"
	CategoryPayment       ErrorCategory = "payment_mismatch"
	CategoryNotFound      ErrorCategory = "not_found"
	CategoryInternal      ErrorCategory = "internal"
)

// Categorize maps a domain error to its category. Unknown errors are
// reported as internal.
func Categorize(err error) ErrorCategory {
	switch {
	case errors.Is(err, ErrInvalidSchedule),
		errors.Is(err, ErrNotOpenYet),
		errors.Is(err, ErrClosed),
		errors.Is(err, ErrNotYetEnded):
		return CategoryScheduling
	case errors.Is(err, ErrUnauthorized):
		return CategoryAuthorization
	case errors.Is(err, ErrCompetitionInactive),
		errors.Is(err, ErrAlreadyJoined),
		errors.Is(err, ErrNothingToWithdraw),
		errors.Is(err, ErrLockHeld):
		return CategoryStateConflict
	case errors.Is(err, ErrMalformedQuestionSet),
		errors.Is(err, ErrAnswerCountMismatch),
		errors.Is(err, ErrNotAParticipant),
		errors.Is(err, ErrInvalidAsset),
		errors.Is(err, ErrInvalidEntryFee):
		return CategoryInputShape
	case errors.Is(err, ErrWrongFee),
		errors.Is(err, ErrFeeTooHigh):
		return CategoryPayment
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	default:
		return CategoryInternal
	}
}
