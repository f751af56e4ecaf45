package game

import "time"

// DateLayout is the wire format for play dates. All window math parses and
// re-formats through it so stored dates round-trip exactly.
const DateLayout = "2006-01-02"

type Window string

const (
	WindowDaily   Window = "daily"
	WindowWeekly  Window = "weekly"
	WindowMonthly Window = "monthly"
)

// Membership reports which leaderboard windows a play date falls into,
// relative to today. A single date can match zero, one, two, or all three.
type Membership struct {
	Daily   bool
	Weekly  bool
	Monthly bool
}

func (m Membership) Any() bool {
	return m.Daily || m.Weekly || m.Monthly
}

// ClassifyDate buckets date against today. Daily is exact calendar-day
// equality, Weekly the trailing 7 days including today, Monthly the current
// calendar month up to today. Malformed or future dates match nothing.
func ClassifyDate(date, today string) Membership {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return Membership{}
	}
	t, err := time.Parse(DateLayout, today)
	if err != nil {
		return Membership{}
	}
	if d.After(t) {
		return Membership{}
	}

	weekStart := t.AddDate(0, 0, -6)
	monthStart := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)

	return Membership{
		Daily:   date == today,
		Weekly:  !d.Before(weekStart),
		Monthly: !d.Before(monthStart),
	}
}

// Today formats a wall-clock instant as a play date.
func Today(now time.Time) string {
	return now.Format(DateLayout)
}
