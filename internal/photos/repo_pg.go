package photos

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

const photoColumns = `id, user_id, file_path, thumbnail_path, mime_type, size_bytes, taken_at, metadata, created_at, updated_at`

// Create inserts a new photo.
func (r *PGRepo) Create(ctx context.Context, photo Photo) error {
	const query = `
INSERT INTO skin_photos (id, user_id, file_path, thumbnail_path, mime_type, size_bytes, taken_at, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`
	metadata, err := json.Marshal(photo.Metadata)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		photo.ID,
		photo.UserID,
		photo.FilePath,
		nullString(photo.ThumbnailPath),
		nullString(photo.MimeType),
		photo.SizeBytes,
		photo.TakenAt,
		metadata,
		photo.CreatedAt,
	)
	return err
}

// GetByID returns a photo owned by the given user.
func (r *PGRepo) GetByID(ctx context.Context, userID, photoID string) (Photo, error) {
	const query = `
SELECT ` + photoColumns + `
FROM skin_photos
WHERE id = $1 AND user_id = $2
LIMIT 1`
	return scanPhoto(r.DB.QueryRowContext(ctx, query, photoID, userID))
}

// ListByUser returns a user's photos, newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Photo, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
SELECT ` + photoColumns + `
FROM skin_photos
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Photo
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, photo)
	}
	return out, rows.Err()
}

// LatestByUser returns the most recently uploaded photo for a user.
func (r *PGRepo) LatestByUser(ctx context.Context, userID string) (Photo, error) {
	const query = `
SELECT ` + photoColumns + `
FROM skin_photos
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT 1`
	return scanPhoto(r.DB.QueryRowContext(ctx, query, userID))
}

// UpdateMetadata replaces the declared skin profile on a photo.
func (r *PGRepo) UpdateMetadata(ctx context.Context, userID, photoID string, metadata Metadata) error {
	const query = `
UPDATE skin_photos
SET metadata = $1::jsonb,
    updated_at = now()
WHERE id = $2 AND user_id = $3`
	payload, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, payload, photoID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a photo; dependent analyses cascade at the schema level.
func (r *PGRepo) Delete(ctx context.Context, userID, photoID string) error {
	const query = `DELETE FROM skin_photos WHERE id = $1 AND user_id = $2`
	res, err := r.DB.ExecContext(ctx, query, photoID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row rowScanner) (Photo, error) {
	var p Photo
	var thumbnail sql.NullString
	var mimeType sql.NullString
	var sizeBytes sql.NullInt64
	var metadata sql.NullString
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.FilePath,
		&thumbnail,
		&mimeType,
		&sizeBytes,
		&p.TakenAt,
		&metadata,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Photo{}, ErrNotFound
		}
		return Photo{}, err
	}
	if thumbnail.Valid {
		p.ThumbnailPath = thumbnail.String
	}
	if mimeType.Valid {
		p.MimeType = mimeType.String
	}
	if sizeBytes.Valid {
		p.SizeBytes = sizeBytes.Int64
	}
	if metadata.Valid {
		_ = json.Unmarshal([]byte(metadata.String), &p.Metadata)
	}
	return p, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
