package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"sign-arena/internal/game"
	"sign-arena/internal/store"
)

// Store is the persistence surface the handlers read from. *store.Store
// satisfies it.
type Store interface {
	Ping(ctx context.Context) error
	ListPlayRecords(ctx context.Context) ([]store.PlayRecord, error)
	ListPlayRecordsByUser(ctx context.Context, userID string) ([]store.PlayRecord, error)
	GetDailyLetters(ctx context.Context, date string) ([]string, error)
	SetDailyLetters(ctx context.Context, date string, letters []string) error
}

func HealthHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			WriteHTTPError(w, http.StatusServiceUnavailable, "store_unavailable")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

// LeaderboardHandler serves all three window rankings in one response,
// recomputed from the record log on every request.
func LeaderboardHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricLeaderboardQueryTotal.Add(1)
		records, err := st.ListPlayRecords(r.Context())
		if err != nil {
			metricLeaderboardQueryErrors.Add(1)
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		boards := game.Aggregate(records, game.Today(time.Now()))
		_ = json.NewEncoder(w).Encode(boards)
	}
}

// LettersHandler exposes the day's challenge sequence. The sequence is
// public; knowing the letters does not help, the hands still have to sign.
func LettersHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date := r.URL.Query().Get("date")
		if date == "" {
			date = game.Today(time.Now())
		}
		if _, err := time.Parse(game.DateLayout, date); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		letters, err := st.GetDailyLetters(r.Context(), date)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				WriteHTTPError(w, http.StatusNotFound, "letters_not_found")
				return
			}
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"play_date": date, "letters": letters})
	}
}

// MyRecordsHandler lists the authenticated user's play history, oldest
// first.
func MyRecordsHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			WriteHTTPError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		records, err := st.ListPlayRecordsByUser(r.Context(), user.ID)
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		var totalScore, totalElapsed int64
		for _, rec := range records {
			totalScore += rec.Score
			totalElapsed += rec.ElapsedSeconds
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"records":               records,
			"days_played":           len(records),
			"total_score":           totalScore,
			"total_elapsed_seconds": totalElapsed,
		})
	}
}
