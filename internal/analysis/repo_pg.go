package analysis

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

const requestColumns = `id, user_id, photo_id, status, analysis_id, error_message, additional_data, completed_at, created_at, updated_at`

// GetOrCreateForPhoto runs the check-and-create as one transaction.
// The photo row is locked for the duration so two near-simultaneous
// requests cannot both insert.
func (r *PGRepo) GetOrCreateForPhoto(ctx context.Context, req AnalysisRequest) (CreateOutcome, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return CreateOutcome{}, err
	}
	defer tx.Rollback()

	// Serialize per photo to avoid duplicate request creation.
	var photoID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM skin_photos WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		req.PhotoID, req.UserID,
	).Scan(&photoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CreateOutcome{}, ErrNotFound
		}
		return CreateOutcome{}, err
	}

	var analysisID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM skin_analyses WHERE photo_id = $1 ORDER BY created_at DESC LIMIT 1`,
		req.PhotoID,
	).Scan(&analysisID)
	if err == nil {
		if err := tx.Commit(); err != nil {
			return CreateOutcome{}, err
		}
		return CreateOutcome{ExistingAnalysisID: analysisID}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return CreateOutcome{}, err
	}

	existing, err := scanRequest(tx.QueryRowContext(ctx, `
SELECT `+requestColumns+`
FROM analysis_requests
WHERE photo_id = $1 AND user_id = $2 AND status IN ('pending', 'processing')
ORDER BY created_at DESC
LIMIT 1`, req.PhotoID, req.UserID))
	if err == nil {
		if err := tx.Commit(); err != nil {
			return CreateOutcome{}, err
		}
		return CreateOutcome{Request: existing, Created: false}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return CreateOutcome{}, err
	}

	additional, err := marshalJSONB(req.AdditionalData)
	if err != nil {
		return CreateOutcome{}, err
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO analysis_requests (id, user_id, photo_id, status, additional_data, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		req.ID, req.UserID, req.PhotoID, string(StatusPending), additional, req.CreatedAt,
	); err != nil {
		return CreateOutcome{}, err
	}
	if err := tx.Commit(); err != nil {
		return CreateOutcome{}, err
	}

	req.Status = StatusPending
	return CreateOutcome{Request: req, Created: true}, nil
}

// GetRequest returns a request owned by the given user.
func (r *PGRepo) GetRequest(ctx context.Context, userID, requestID string) (AnalysisRequest, error) {
	const query = `
SELECT ` + requestColumns + `
FROM analysis_requests
WHERE id = $1 AND user_id = $2
LIMIT 1`
	return scanRequest(r.DB.QueryRowContext(ctx, query, requestID, userID))
}

// GetRequestByID returns a request regardless of owner.
func (r *PGRepo) GetRequestByID(ctx context.Context, requestID string) (AnalysisRequest, error) {
	const query = `
SELECT ` + requestColumns + `
FROM analysis_requests
WHERE id = $1
LIMIT 1`
	return scanRequest(r.DB.QueryRowContext(ctx, query, requestID))
}

// ListRequestsByUser lists requests newest-first.
func (r *PGRepo) ListRequestsByUser(ctx context.Context, userID string, limit, offset int) ([]AnalysisRequest, error) {
	limit, offset = clampPage(limit, offset)

	const query = `
SELECT ` + requestColumns + `
FROM analysis_requests
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AnalysisRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// MarkProcessing is a compare-and-set from pending.
func (r *PGRepo) MarkProcessing(ctx context.Context, requestID string) error {
	const query = `
UPDATE analysis_requests
SET status = 'processing',
    updated_at = now()
WHERE id = $1 AND status = 'pending'`
	res, err := r.DB.ExecContext(ctx, query, requestID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

// MarkCompleted is a compare-and-set from processing; terminal.
func (r *PGRepo) MarkCompleted(ctx context.Context, requestID, analysisID string) error {
	const query = `
UPDATE analysis_requests
SET status = 'completed',
    analysis_id = $2,
    completed_at = now(),
    updated_at = now()
WHERE id = $1 AND status = 'processing'`
	res, err := r.DB.ExecContext(ctx, query, requestID, analysisID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

// MarkFailed is a compare-and-set from pending or processing; terminal.
func (r *PGRepo) MarkFailed(ctx context.Context, requestID, reason string) error {
	const query = `
UPDATE analysis_requests
SET status = 'failed',
    error_message = $2,
    completed_at = now(),
    updated_at = now()
WHERE id = $1 AND status IN ('pending', 'processing')`
	res, err := r.DB.ExecContext(ctx, query, requestID, reason)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStale
	}
	return nil
}

const analysisColumns = `id, photo_id, user_id, skin_condition, skin_issues, metrics, created_at`

// SaveAnalysis inserts an engine result. Results are immutable.
func (r *PGRepo) SaveAnalysis(ctx context.Context, analysis Analysis) error {
	const query = `
INSERT INTO skin_analyses (id, photo_id, user_id, skin_condition, skin_issues, metrics, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	condition, err := marshalJSONB(analysis.Result.SkinCondition)
	if err != nil {
		return err
	}
	issues, err := marshalJSONB(analysis.Result.Issues)
	if err != nil {
		return err
	}
	metrics, err := marshalJSONB(analysis.Result.Metrics)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		analysis.ID,
		analysis.PhotoID,
		analysis.UserID,
		condition,
		issues,
		metrics,
		analysis.CreatedAt,
	)
	return err
}

// GetAnalysis returns a stored result owned by the given user.
func (r *PGRepo) GetAnalysis(ctx context.Context, userID, analysisID string) (Analysis, error) {
	const query = `
SELECT ` + analysisColumns + `
FROM skin_analyses
WHERE id = $1 AND user_id = $2
LIMIT 1`
	return scanAnalysis(r.DB.QueryRowContext(ctx, query, analysisID, userID))
}

// ListAnalysesByUser lists stored results newest-first.
func (r *PGRepo) ListAnalysesByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	limit, offset = clampPage(limit, offset)

	const query = `
SELECT ` + analysisColumns + `
FROM skin_analyses
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAnalyses(rows)
}

// GetAnalysesByIDs returns the user's analyses for the given ids.
func (r *PGRepo) GetAnalysesByIDs(ctx context.Context, userID string, analysisIDs []string) ([]Analysis, error) {
	if len(analysisIDs) == 0 {
		return nil, nil
	}

	const query = `
SELECT ` + analysisColumns + `
FROM skin_analyses
WHERE user_id = $1 AND id = ANY($2)`

	rows, err := r.DB.QueryContext(ctx, query, userID, analysisIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAnalyses(rows)
}

// DeleteTerminalBefore purges old completed/failed requests.
func (r *PGRepo) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `
DELETE FROM analysis_requests
WHERE status IN ('completed', 'failed') AND created_at < $1`
	res, err := r.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListStuckBefore returns active requests older than the cutoff.
func (r *PGRepo) ListStuckBefore(ctx context.Context, cutoff time.Time) ([]AnalysisRequest, error) {
	const query = `
SELECT ` + requestColumns + `
FROM analysis_requests
WHERE status IN ('pending', 'processing') AND created_at < $1
ORDER BY created_at ASC`

	rows, err := r.DB.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AnalysisRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (AnalysisRequest, error) {
	var req AnalysisRequest
	var status string
	var analysisID sql.NullString
	var errorMessage sql.NullString
	var additional sql.NullString
	var completedAt sql.NullTime
	err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.PhotoID,
		&status,
		&analysisID,
		&errorMessage,
		&additional,
		&completedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AnalysisRequest{}, ErrNotFound
		}
		return AnalysisRequest{}, err
	}
	req.Status = Status(status)
	if analysisID.Valid {
		req.AnalysisID = analysisID.String
	}
	if errorMessage.Valid {
		req.ErrorMessage = errorMessage.String
	}
	if additional.Valid {
		_ = json.Unmarshal([]byte(additional.String), &req.AdditionalData)
	}
	if completedAt.Valid {
		t := completedAt.Time
		req.CompletedAt = &t
	}
	return req, nil
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var a Analysis
	var condition sql.NullString
	var issues sql.NullString
	var metrics sql.NullString
	err := row.Scan(
		&a.ID,
		&a.PhotoID,
		&a.UserID,
		&condition,
		&issues,
		&metrics,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, err
	}
	if condition.Valid {
		_ = json.Unmarshal([]byte(condition.String), &a.Result.SkinCondition)
	}
	if issues.Valid {
		_ = json.Unmarshal([]byte(issues.String), &a.Result.Issues)
	}
	if metrics.Valid {
		_ = json.Unmarshal([]byte(metrics.String), &a.Result.Metrics)
	}
	return a, nil
}

func collectAnalyses(rows *sql.Rows) ([]Analysis, error) {
	var out []Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func marshalJSONB(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return payload, nil
}
