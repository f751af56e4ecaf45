package game

import (
	"sort"

	"sign-arena/internal/store"
)

// Entry is one ranked row: sums of a player's contributing records within a
// single window.
type Entry struct {
	UserID         string `json:"user_id"`
	Email          string `json:"email"`
	Score          int64  `json:"score"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
}

type Boards struct {
	Daily   []Entry `json:"daily"`
	Weekly  []Entry `json:"weekly"`
	Monthly []Entry `json:"monthly"`
}

type accumulator struct {
	byUser map[string]*Entry
	order  []string
}

func newAccumulator() *accumulator {
	return &accumulator{byUser: map[string]*Entry{}}
}

func (a *accumulator) add(rec store.PlayRecord) {
	e := a.byUser[rec.UserID]
	if e == nil {
		// First record seen for this user seeds the display email.
		e = &Entry{UserID: rec.UserID, Email: rec.Email}
		a.byUser[rec.UserID] = e
		a.order = append(a.order, rec.UserID)
	}
	e.Score += rec.Score
	e.ElapsedSeconds += rec.ElapsedSeconds
}

func (a *accumulator) ranked() []Entry {
	out := make([]Entry, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, *a.byUser[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ElapsedSeconds < out[j].ElapsedSeconds
	})
	return out
}

// Aggregate folds the full record log into the three window rankings in a
// single pass. Records contribute independently to every window they fall
// into. Ordering per window: score descending, then elapsed time ascending
// (faster wins), then input order.
func Aggregate(records []store.PlayRecord, today string) Boards {
	daily := newAccumulator()
	weekly := newAccumulator()
	monthly := newAccumulator()

	for _, rec := range records {
		m := ClassifyDate(rec.PlayDate, today)
		if m.Daily {
			daily.add(rec)
		}
		if m.Weekly {
			weekly.add(rec)
		}
		if m.Monthly {
			monthly.add(rec)
		}
	}

	return Boards{
		Daily:   daily.ranked(),
		Weekly:  weekly.ranked(),
		Monthly: monthly.ranked(),
	}
}
