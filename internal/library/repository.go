package library

import (
	"context"
	"database/sql"
	"time"
)

type Repository interface {
	CreateRecording(ctx context.Context, rec *Recording) error
	GetRecording(ctx context.Context, id string) (*Recording, error)
	ListRecordings(ctx context.Context, limit int) ([]*Recording, error)
	DeleteRecording(ctx context.Context, id string) error

	CreateTranscript(ctx context.Context, tr *TranscriptRecord) error
	GetTranscript(ctx context.Context, id string) (*TranscriptRecord, error)
	GetTranscriptByClip(ctx context.Context, clipID string) (*TranscriptRecord, error)
	ListTranscripts(ctx context.Context, limit int) ([]*TranscriptRecord, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateRecording(ctx context.Context, rec *Recording) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recordings (id, kind, path, duration_s, size_bytes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Kind, rec.Path, rec.DurationS, rec.SizeBytes, rec.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetRecording(ctx context.Context, id string) (*Recording, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, path, duration_s, size_bytes, created_at
		FROM recordings WHERE id = ?
	`, id)
	return scanRecording(row)
}

func (r *SQLiteRepository) ListRecordings(ctx context.Context, limit int) ([]*Recording, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, path, duration_s, size_bytes, created_at
		FROM recordings ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Recording
	for rows.Next() {
		var rec Recording
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Path, &rec.DurationS, &rec.SizeBytes, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

func (r *SQLiteRepository) DeleteRecording(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepository) CreateTranscript(ctx context.Context, tr *TranscriptRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transcripts (id, clip_id, language, duration_s, full_text, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, tr.ID, tr.ClipID, tr.Language, tr.DurationS, tr.FullText, tr.Payload, tr.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetTranscript(ctx context.Context, id string) (*TranscriptRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, clip_id, language, duration_s, full_text, payload, created_at
		FROM transcripts WHERE id = ?
	`, id)
	return scanTranscript(row)
}

func (r *SQLiteRepository) GetTranscriptByClip(ctx context.Context, clipID string) (*TranscriptRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, clip_id, language, duration_s, full_text, payload, created_at
		FROM transcripts WHERE clip_id = ? ORDER BY created_at DESC LIMIT 1
	`, clipID)
	return scanTranscript(row)
}

func (r *SQLiteRepository) ListTranscripts(ctx context.Context, limit int) ([]*TranscriptRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, clip_id, language, duration_s, full_text, payload, created_at
		FROM transcripts ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trs []*TranscriptRecord
	for rows.Next() {
		var tr TranscriptRecord
		var createdAt string
		if err := rows.Scan(&tr.ID, &tr.ClipID, &tr.Language, &tr.DurationS, &tr.FullText, &tr.Payload, &createdAt); err != nil {
			return nil, err
		}
		tr.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		trs = append(trs, &tr)
	}
	return trs, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecording(row rowScanner) (*Recording, error) {
	var rec Recording
	var createdAt string
	err := row.Scan(&rec.ID, &rec.Kind, &rec.Path, &rec.DurationS, &rec.SizeBytes, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &rec, nil
}

func scanTranscript(row rowScanner) (*TranscriptRecord, error) {
	var tr TranscriptRecord
	var createdAt string
	err := row.Scan(&tr.ID, &tr.ClipID, &tr.Language, &tr.DurationS, &tr.FullText, &tr.Payload, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tr.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &tr, nil
}
