package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"sign-arena/internal/game"
)

// AdminRecordsHandler dumps the raw record log for operators.
func AdminRecordsHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := st.ListPlayRecords(r.Context())
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"records": records, "count": len(records)})
	}
}

type setLettersRequest struct {
	PlayDate string   `json:"play_date"`
	Letters  []string `json:"letters"`
}

// AdminSetLettersHandler overwrites a day's letter sequence. Sessions
// already running keep the sequence they started with.
func AdminSetLettersHandler(st Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setLettersRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		if _, err := time.Parse(game.DateLayout, req.PlayDate); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		if len(req.Letters) == 0 {
			WriteHTTPError(w, http.StatusBadRequest, "empty_letters")
			return
		}
		if err := st.SetDailyLetters(r.Context(), req.PlayDate, req.Letters); err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "play_date": req.PlayDate, "letters": req.Letters})
	}
}
