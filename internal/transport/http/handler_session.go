package httptransport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sign-arena/internal/arena"
)

var ssePingInterval = 15 * time.Second

type createSessionRequest struct {
	Mode string `json:"mode"`
}

type framesRequest struct {
	Landmarks []float64 `json:"landmarks"`
}

func SessionsCreateHandler(coord *arena.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricSessionCreateTotal.Add(1)
		user, ok := UserFromContext(r.Context())
		if !ok {
			WriteHTTPError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			metricSessionCreateErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		snap, err := coord.CreateSession(r.Context(), user, arena.Mode(req.Mode))
		if err != nil {
			metricSessionCreateErrors.Add(1)
			status, code := arena.MapSessionError(err)
			WriteHTTPError(w, status, code)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(snap)
	}
}

func SessionStateHandler(coord *arena.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			WriteHTTPError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		snap, err := coord.State(chi.URLParam(r, "session_id"), user.ID)
		if err != nil {
			status, code := arena.MapSessionError(err)
			WriteHTTPError(w, status, code)
			return
		}
		_ = json.NewEncoder(w).Encode(snap)
	}
}

func FramesHandler(coord *arena.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metricFrameSubmitTotal.Add(1)
		user, ok := UserFromContext(r.Context())
		if !ok {
			WriteHTTPError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		var req framesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			metricFrameSubmitErrors.Add(1)
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		snap, err := coord.SubmitFrame(chi.URLParam(r, "session_id"), user.ID, req.Landmarks)
		if err != nil {
			metricFrameSubmitErrors.Add(1)
			status, code := arena.MapSessionError(err)
			WriteHTTPError(w, status, code)
			return
		}
		_ = json.NewEncoder(w).Encode(snap)
	}
}

func SkipHandler(coord *arena.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			WriteHTTPError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		snap, err := coord.Skip(chi.URLParam(r, "session_id"), user.ID)
		if err != nil {
			status, code := arena.MapSessionError(err)
			WriteHTTPError(w, status, code)
			return
		}
		_ = json.NewEncoder(w).Encode(snap)
	}
}

func SessionsDeleteHandler(coord *arena.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			WriteHTTPError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		if err := coord.CloseSession(chi.URLParam(r, "session_id"), user.ID); err != nil {
			status, code := arena.MapSessionError(err)
			WriteHTTPError(w, status, code)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

// EventsSSEHandler streams the session's feedback events. Reconnects with
// a Last-Event-ID header replay what the client missed.
func EventsSSEHandler(coord *arena.Coordinator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			WriteHTTPError(w, http.StatusUnauthorized, "missing_token")
			return
		}
		sessionID := chi.URLParam(r, "session_id")
		buf, err := coord.Events(sessionID, user.ID)
		if err != nil {
			status, code := arena.MapSessionError(err)
			WriteHTTPError(w, status, code)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteHTTPError(w, http.StatusInternalServerError, "stream_not_supported")
			return
		}

		metricSSEConnectionsTotal.Add(1)
		metricSSEConnectionsActive.Add(1)
		defer metricSSEConnectionsActive.Add(-1)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		for _, ev := range buf.ReplayAfter(r.Header.Get("Last-Event-ID")) {
			if err := writeSSE(w, ev); err != nil {
				return
			}
		}
		flusher.Flush()

		ch := buf.Subscribe()
		defer buf.Unsubscribe(ch)
		ticker := time.NewTicker(ssePingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := writeSSE(w, ev); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				ping := arena.StreamEvent{
					Event:     "ping",
					SessionID: sessionID,
					ServerTS:  time.Now().UnixMilli(),
					Data:      map[string]any{"ts": time.Now().UnixMilli()},
				}
				if err := writeSSE(w, ping); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, ev arena.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if ev.EventID != "" {
		if _, err := fmt.Fprintf(w, "id: %s\n", ev.EventID); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", ev.Event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return nil
}
