package arena

import (
	"errors"
	"net/http"
)

var (
	ErrSessionNotFound  = errors.New("session_not_found")
	ErrSessionForbidden = errors.New("session_forbidden")
	ErrSessionOver      = errors.New("session_over")
	ErrBadVector        = errors.New("invalid_vector_length")
	ErrBadMode          = errors.New("invalid_mode")
)

// Block reasons surfaced on a session that never became playable.
const (
	BlockAlreadyPlayed          = "already_played"
	BlockEligibilityUnavailable = "eligibility_unavailable"
	BlockLettersUnavailable     = "letters_unavailable"
)

// MapSessionError translates coordinator errors into an HTTP status and a
// stable machine-readable code for the error envelope.
func MapSessionError(err error) (int, string) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, ErrSessionForbidden):
		return http.StatusForbidden, "session_forbidden"
	case errors.Is(err, ErrSessionOver):
		return http.StatusConflict, "session_over"
	case errors.Is(err, ErrBadVector):
		return http.StatusBadRequest, "invalid_vector_length"
	case errors.Is(err, ErrBadMode):
		return http.StatusBadRequest, "invalid_mode"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
