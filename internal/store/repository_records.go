package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// dateLayout mirrors game.DateLayout; keeping a local copy avoids importing
// the domain package that depends on these models.
const dateLayout = "2006-01-02"

// UpsertPlayRecord writes a finalized session result. The (user_id,
// play_date) key makes a retried finalize overwrite the earlier row rather
// than duplicate it; the second write's values win.
func (s *Store) UpsertPlayRecord(ctx context.Context, rec PlayRecord) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO play_records (user_id, email, score, elapsed_seconds, play_date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, play_date) DO UPDATE
		SET email = EXCLUDED.email,
		    score = EXCLUDED.score,
		    elapsed_seconds = EXCLUDED.elapsed_seconds,
		    updated_at = now()
	`, rec.UserID, rec.Email, rec.Score, rec.ElapsedSeconds, rec.PlayDate)
	return err
}

// HasPlayRecordForDate is the eligibility gate's authoritative read: it goes
// to the database immediately before a session may enter Active.
func (s *Store) HasPlayRecordForDate(ctx context.Context, userID, date string) (bool, error) {
	var exists bool
	err := s.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM play_records WHERE user_id = $1 AND play_date = $2)`,
		userID, date,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) GetPlayRecord(ctx context.Context, userID, date string) (*PlayRecord, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT user_id, email, score, elapsed_seconds, play_date, created_at, updated_at
		FROM play_records WHERE user_id = $1 AND play_date = $2
	`, userID, date)
	rec, err := scanPlayRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// ListPlayRecords returns the full record log, the aggregation engine's
// input snapshot. No pagination: one row per player per day stays small.
func (s *Store) ListPlayRecords(ctx context.Context) ([]PlayRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT user_id, email, score, elapsed_seconds, play_date, created_at, updated_at
		FROM play_records ORDER BY play_date ASC, created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPlayRecords(rows)
}

func (s *Store) ListPlayRecordsByUser(ctx context.Context, userID string) ([]PlayRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT user_id, email, score, elapsed_seconds, play_date, created_at, updated_at
		FROM play_records WHERE user_id = $1 ORDER BY play_date ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPlayRecords(rows)
}

func collectPlayRecords(rows pgx.Rows) ([]PlayRecord, error) {
	out := []PlayRecord{}
	for rows.Next() {
		rec, err := scanPlayRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func scanPlayRecord(row pgx.Row) (*PlayRecord, error) {
	var rec PlayRecord
	var playDate time.Time
	if err := row.Scan(&rec.UserID, &rec.Email, &rec.Score, &rec.ElapsedSeconds, &playDate, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.PlayDate = playDate.Format(dateLayout)
	return &rec, nil
}
