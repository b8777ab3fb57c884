package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const recordColumns = `episode_id, series_id, fingerprint, artifact_path, status, error_message, built_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		record    Record
		status    string
		builtAt   sql.NullString
		updatedAt string
	)
	if err := row.Scan(
		&record.EpisodeID,
		&record.SeriesID,
		&record.Fingerprint,
		&record.ArtifactPath,
		&status,
		&record.ErrorMessage,
		&builtAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	parsed, ok := ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("unknown record status %q", status)
	}
	record.Status = parsed

	if builtAt.Valid && strings.TrimSpace(builtAt.String) != "" {
		ts, err := time.Parse(time.RFC3339Nano, builtAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse built_at: %w", err)
		}
		record.BuiltAt = &ts
	}
	ts, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	record.UpdatedAt = ts

	return &record, nil
}

// Get fetches the card record for an episode, or nil when absent.
func (s *Store) Get(ctx context.Context, episodeID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM card_records WHERE episode_id = ?`, episodeID)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return record, nil
}

// Put upserts the record for a successful build: fingerprint, artifact
// path, and built-at all move forward together. Only success commits a
// new fingerprint; use MarkFailed for failures.
func (s *Store) Put(ctx context.Context, record Record) error {
	if record.EpisodeID == "" {
		return errors.New("episode id is required")
	}
	if record.Fingerprint == "" {
		return errors.New("fingerprint is required")
	}
	now := time.Now().UTC()
	builtAt := now
	if record.BuiltAt != nil {
		builtAt = record.BuiltAt.UTC()
	}

	if _, err := s.execWithRetry(ctx,
		`INSERT INTO card_records (
		    episode_id, series_id, fingerprint, artifact_path, status,
		    error_message, built_at, updated_at
		) VALUES (?, ?, ?, ?, ?, '', ?, ?)
		ON CONFLICT(episode_id) DO UPDATE SET
		    series_id = excluded.series_id,
		    fingerprint = excluded.fingerprint,
		    artifact_path = excluded.artifact_path,
		    status = excluded.status,
		    error_message = '',
		    built_at = excluded.built_at,
		    updated_at = excluded.updated_at`,
		record.EpisodeID,
		record.SeriesID,
		record.Fingerprint,
		record.ArtifactPath,
		StatusBuilt,
		builtAt.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// MarkFailed records a failed or source-missing outcome without touching
// the fingerprint, artifact path, or built-at of the prior successful
// build.
func (s *Store) MarkFailed(ctx context.Context, episodeID, seriesID string, status Status, message string) error {
	if episodeID == "" {
		return errors.New("episode id is required")
	}
	switch status {
	case StatusFailed, StatusMissingSource:
	default:
		return fmt.Errorf("status %q is not a failure status", status)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if _, err := s.execWithRetry(ctx,
		`INSERT INTO card_records (
		    episode_id, series_id, fingerprint, artifact_path, status,
		    error_message, built_at, updated_at
		) VALUES (?, ?, '', '', ?, ?, NULL, ?)
		ON CONFLICT(episode_id) DO UPDATE SET
		    series_id = excluded.series_id,
		    status = excluded.status,
		    error_message = excluded.error_message,
		    updated_at = excluded.updated_at`,
		episodeID,
		seriesID,
		status,
		message,
		now,
	); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// List returns records filtered by status set (or all records when no
// status is provided), ordered by episode id.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Record, error) {
	baseQuery := `SELECT ` + recordColumns + ` FROM card_records`
	orderClause := ` ORDER BY episode_id`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ListSeries returns the records for one series ordered by episode id.
func (s *Store) ListSeries(ctx context.Context, seriesID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM card_records WHERE series_id = ? ORDER BY episode_id`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("list series records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Remove deletes the record for one episode, reporting whether a row was
// removed. Called when an episode is deleted from the library.
func (s *Store) Remove(ctx context.Context, episodeID string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM card_records WHERE episode_id = ?`, episodeID)
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearFailed removes failed and missing-source records.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM card_records WHERE status IN (?, ?)`, StatusFailed, StatusMissingSource)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all records.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM card_records`)
	if err != nil {
		return 0, fmt.Errorf("clear ledger: %w", err)
	}
	return res.RowsAffected()
}
