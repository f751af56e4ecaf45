package game

import (
	"testing"

	"sign-arena/internal/store"
)

const day = "2025-03-15"

func rec(user, email string, score, elapsed int64, date string) store.PlayRecord {
	return store.PlayRecord{UserID: user, Email: email, Score: score, ElapsedSeconds: elapsed, PlayDate: date}
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.UserID
	}
	return out
}

func TestAggregateOrdering(t *testing.T) {
	boards := Aggregate([]store.PlayRecord{
		rec("slow", "slow@x", 10, 5, day),
		rec("fast", "fast@x", 10, 3, day),
		rec("low", "low@x", 7, 1, day),
	}, day)

	got := ids(boards.Daily)
	want := []string{"fast", "slow", "low"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("daily order = %v, want %v", got, want)
		}
	}
}

func TestAggregateTiesKeepInputOrder(t *testing.T) {
	boards := Aggregate([]store.PlayRecord{
		rec("first", "a@x", 5, 9, day),
		rec("second", "b@x", 5, 9, day),
	}, day)

	got := ids(boards.Daily)
	if got[0] != "first" || got[1] != "second" {
		t.Fatalf("tied order = %v, want input order", got)
	}
}

func TestAggregateSumsAcrossWeek(t *testing.T) {
	boards := Aggregate([]store.PlayRecord{
		rec("u1", "u1@x", 2, 30, "2025-03-14"),
		rec("u1", "u1@x", 5, 40, day),
	}, day)

	if len(boards.Daily) != 1 || boards.Daily[0].Score != 5 {
		t.Fatalf("daily = %+v, want only today's 5", boards.Daily)
	}
	if len(boards.Weekly) != 1 {
		t.Fatalf("weekly = %+v, want one merged row", boards.Weekly)
	}
	if w := boards.Weekly[0]; w.Score != 7 || w.ElapsedSeconds != 70 {
		t.Fatalf("weekly sums = %d/%d, want 7/70", w.Score, w.ElapsedSeconds)
	}
}

func TestAggregateFirstRecordSeedsEmail(t *testing.T) {
	boards := Aggregate([]store.PlayRecord{
		rec("u1", "old@x", 1, 1, "2025-03-10"),
		rec("u1", "new@x", 1, 1, day),
	}, day)

	if boards.Monthly[0].Email != "old@x" {
		t.Fatalf("email = %q, want the first record's", boards.Monthly[0].Email)
	}
	if boards.Daily[0].Email != "new@x" {
		t.Fatalf("daily email = %q, want new@x", boards.Daily[0].Email)
	}
}

func TestAggregateEmptyWindows(t *testing.T) {
	boards := Aggregate([]store.PlayRecord{
		rec("u1", "u1@x", 3, 10, "2025-02-01"),
	}, day)

	if len(boards.Daily) != 0 || len(boards.Weekly) != 0 || len(boards.Monthly) != 0 {
		t.Fatalf("stale record leaked into %+v", boards)
	}
}

func TestAggregateNoRecords(t *testing.T) {
	boards := Aggregate(nil, day)
	if boards.Daily == nil || len(boards.Daily) != 0 {
		t.Fatalf("daily = %#v, want empty non-nil slice", boards.Daily)
	}
}
