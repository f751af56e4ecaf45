package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
)

// GetDailyLetters returns the fixed letter sequence for a day, or
// ErrNotFound when none has been generated yet.
func (s *Store) GetDailyLetters(ctx context.Context, date string) ([]string, error) {
	var joined string
	err := s.Pool.QueryRow(ctx,
		`SELECT letters FROM daily_letters WHERE play_date = $1`, date,
	).Scan(&joined)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return splitLetters(joined), nil
}

// EnsureDailyLetters writes a day's sequence only if none exists, then
// returns whatever is stored. Two racing sessions both end up with the same
// sequence regardless of which insert won.
func (s *Store) EnsureDailyLetters(ctx context.Context, date string, letters []string) ([]string, error) {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO daily_letters (play_date, letters)
		VALUES ($1, $2)
		ON CONFLICT (play_date) DO NOTHING
	`, date, joinLetters(letters))
	if err != nil {
		return nil, err
	}
	return s.GetDailyLetters(ctx, date)
}

// SetDailyLetters overwrites a day's sequence (admin override).
func (s *Store) SetDailyLetters(ctx context.Context, date string, letters []string) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO daily_letters (play_date, letters)
		VALUES ($1, $2)
		ON CONFLICT (play_date) DO UPDATE SET letters = EXCLUDED.letters
	`, date, joinLetters(letters))
	return err
}

func joinLetters(letters []string) string {
	return strings.Join(letters, ",")
}

func splitLetters(joined string) []string {
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
