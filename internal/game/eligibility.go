package game

import "sign-arena/internal/store"

// HasPlayedToday reports whether userID already has a record dated today.
// The orchestrator consults the store's authoritative query instead; this
// predicate serves callers that already hold a record snapshot.
func HasPlayedToday(userID string, records []store.PlayRecord, today string) bool {
	for _, rec := range records {
		if rec.UserID == userID && rec.PlayDate == today {
			return true
		}
	}
	return false
}
