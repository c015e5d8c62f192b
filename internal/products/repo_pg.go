package products

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

const productColumns = `id, name, brand, image_path, category, ingredients, description, rating, skin_type_target, skin_concerns_target, created_at`

// Create inserts a catalog entry.
func (r *PGRepo) Create(ctx context.Context, product Product) error {
	const query = `
INSERT INTO products (id, name, brand, image_path, category, ingredients, description, rating, skin_type_target, skin_concerns_target, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	ingredients, err := json.Marshal(product.Ingredients)
	if err != nil {
		return err
	}
	concerns, err := json.Marshal(product.SkinConcernsTarget)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		product.ID,
		product.Name,
		nullString(product.Brand),
		nullString(product.ImagePath),
		nullString(product.Category),
		ingredients,
		nullString(product.Description),
		product.Rating,
		nullString(product.SkinTypeTarget),
		concerns,
		product.CreatedAt,
	)
	return err
}

// GetByID returns a catalog entry.
func (r *PGRepo) GetByID(ctx context.Context, productID string) (Product, error) {
	const query = `
SELECT ` + productColumns + `
FROM products
WHERE id = $1
LIMIT 1`
	return scanProduct(r.DB.QueryRowContext(ctx, query, productID))
}

// List returns catalog entries ordered by rating.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Product, error) {
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
SELECT ` + productColumns + `
FROM products
ORDER BY rating DESC, created_at DESC
LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, product)
	}
	return out, rows.Err()
}

// FindOne returns the best-rated product matching the filter. A product
// qualifies when its target skin type equals the filter's, or its target
// concerns contain the filter's concern.
func (r *PGRepo) FindOne(ctx context.Context, filter Filter) (Product, error) {
	const query = `
SELECT ` + productColumns + `
FROM products
WHERE ($1 <> '' AND skin_type_target = $1)
   OR ($2 <> '' AND skin_concerns_target @> to_jsonb(ARRAY[$2]::text[]))
ORDER BY rating DESC, created_at DESC
LIMIT 1`
	if filter.SkinTypeTarget == "" && filter.SkinConcern == "" {
		return Product{}, ErrNotFound
	}
	return scanProduct(r.DB.QueryRowContext(ctx, query, filter.SkinTypeTarget, filter.SkinConcern))
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	var brand, imagePath, category, description, skinTypeTarget sql.NullString
	var ingredients, concerns sql.NullString
	var rating sql.NullFloat64
	err := row.Scan(
		&p.ID,
		&p.Name,
		&brand,
		&imagePath,
		&category,
		&ingredients,
		&description,
		&rating,
		&skinTypeTarget,
		&concerns,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}
	p.Brand = brand.String
	p.ImagePath = imagePath.String
	p.Category = category.String
	p.Description = description.String
	p.Rating = rating.Float64
	p.SkinTypeTarget = skinTypeTarget.String
	if ingredients.Valid {
		_ = json.Unmarshal([]byte(ingredients.String), &p.Ingredients)
	}
	if concerns.Valid {
		_ = json.Unmarshal([]byte(concerns.String), &p.SkinConcernsTarget)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
