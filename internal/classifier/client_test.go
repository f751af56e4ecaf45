package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func vector(n int) []float64 {
	return make([]float64, n)
}

func TestPredictReturnsLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict_frame" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req struct {
			Landmarks []float64 `json:"landmarks"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Landmarks) != 63 {
			t.Errorf("expected 63 landmarks, got %d", len(req.Landmarks))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"predicted": "a"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, []int{63})
	label, err := c.Predict(context.Background(), vector(63))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if label != "a" {
		t.Fatalf("label = %q, want a", label)
	}
}

func TestPredictNonePredictionIsNoSignal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"predicted": "None"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, []int{63})
	label, err := c.Predict(context.Background(), vector(63))
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if label != "" {
		t.Fatalf("label = %q, want empty", label)
	}
}

func TestPredictRejectsWrongLengthLocally(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, []int{63, 126})
	if _, err := c.Predict(context.Background(), vector(64)); !errors.Is(err, ErrVectorLength) {
		t.Fatalf("expected ErrVectorLength, got %v", err)
	}
	if called {
		t.Fatal("wrong-length vector must never reach the service")
	}
}

func TestPredictServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "Model not loaded"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, []int{63})
	if _, err := c.Predict(context.Background(), vector(63)); err == nil {
		t.Fatal("expected error from 500 response")
	}
}

func TestPredictTimeoutIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, 20*time.Millisecond, []int{63})
	if _, err := c.Predict(context.Background(), vector(63)); err == nil {
		t.Fatal("expected timeout error")
	}
}
