package game

import (
	"testing"

	"sign-arena/internal/store"
)

func TestHasPlayedToday(t *testing.T) {
	records := []store.PlayRecord{
		{UserID: "u1", PlayDate: "2025-03-14"},
		{UserID: "u2", PlayDate: "2025-03-15"},
	}
	if HasPlayedToday("u1", records, "2025-03-15") {
		t.Fatal("u1 played yesterday, not today")
	}
	if !HasPlayedToday("u2", records, "2025-03-15") {
		t.Fatal("u2 played today")
	}
	if HasPlayedToday("u3", records, "2025-03-15") {
		t.Fatal("u3 never played")
	}
}
