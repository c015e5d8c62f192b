package recommendations

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

// PGRepo implements Repo using Postgres. The product attachments live
// in a join table keyed by recommendation id.
type PGRepo struct {
	DB *sql.DB
}

var _ Repo = (*PGRepo)(nil)

// Create inserts a recommendation and its product attachments in one
// transaction.
func (r *PGRepo) Create(ctx context.Context, rec Recommendation) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	details, err := json.Marshal(rec.Details)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO recommendations (id, user_id, analysis_id, details, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)`,
		rec.ID, rec.UserID, rec.AnalysisID, details, rec.CreatedAt,
	); err != nil {
		return err
	}

	for _, product := range rec.Products {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO recommendation_products (recommendation_id, product_id, recommendation_reason, created_at)
VALUES ($1, $2, $3, $4)`,
			rec.ID, product.ProductID, product.Reason, rec.CreatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetByID returns a recommendation owned by the given user.
func (r *PGRepo) GetByID(ctx context.Context, userID, recID string) (Recommendation, error) {
	const query = `
SELECT id, user_id, analysis_id, details, created_at
FROM recommendations
WHERE id = $1 AND user_id = $2
LIMIT 1`
	rec, err := scanRecommendation(r.DB.QueryRowContext(ctx, query, recID, userID))
	if err != nil {
		return Recommendation{}, err
	}
	if err := r.attachProducts(ctx, &rec); err != nil {
		return Recommendation{}, err
	}
	return rec, nil
}

// GetByAnalysisID returns the newest recommendation for an analysis.
func (r *PGRepo) GetByAnalysisID(ctx context.Context, userID, analysisID string) (Recommendation, error) {
	const query = `
SELECT id, user_id, analysis_id, details, created_at
FROM recommendations
WHERE analysis_id = $1 AND user_id = $2
ORDER BY created_at DESC
LIMIT 1`
	rec, err := scanRecommendation(r.DB.QueryRowContext(ctx, query, analysisID, userID))
	if err != nil {
		return Recommendation{}, err
	}
	if err := r.attachProducts(ctx, &rec); err != nil {
		return Recommendation{}, err
	}
	return rec, nil
}

// ListByUser lists recommendations newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Recommendation, error) {
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
SELECT id, user_id, analysis_id, details, created_at
FROM recommendations
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Recommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := r.attachProducts(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// LatestByUser returns the most recent recommendation for a user.
func (r *PGRepo) LatestByUser(ctx context.Context, userID string) (Recommendation, error) {
	const query = `
SELECT id, user_id, analysis_id, details, created_at
FROM recommendations
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT 1`
	rec, err := scanRecommendation(r.DB.QueryRowContext(ctx, query, userID))
	if err != nil {
		return Recommendation{}, err
	}
	if err := r.attachProducts(ctx, &rec); err != nil {
		return Recommendation{}, err
	}
	return rec, nil
}

func (r *PGRepo) attachProducts(ctx context.Context, rec *Recommendation) error {
	const query = `
SELECT rp.product_id, p.name, p.brand, rp.recommendation_reason
FROM recommendation_products rp
JOIN products p ON p.id = rp.product_id
WHERE rp.recommendation_id = $1
ORDER BY p.name`

	rows, err := r.DB.QueryContext(ctx, query, rec.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var product RecommendedProduct
		var brand sql.NullString
		if err := rows.Scan(&product.ProductID, &product.Name, &brand, &product.Reason); err != nil {
			return err
		}
		product.Brand = brand.String
		rec.Products = append(rec.Products, product)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecommendation(row rowScanner) (Recommendation, error) {
	var rec Recommendation
	var details sql.NullString
	err := row.Scan(&rec.ID, &rec.UserID, &rec.AnalysisID, &details, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Recommendation{}, ErrNotFound
		}
		return Recommendation{}, err
	}
	if details.Valid {
		_ = json.Unmarshal([]byte(details.String), &rec.Details)
	}
	return rec, nil
}
