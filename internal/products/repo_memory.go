package products

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores catalog entries in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Product
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Product)}
}

var _ Repo = (*MemoryRepo)(nil)

// Create stores the product.
func (r *MemoryRepo) Create(ctx context.Context, product Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[product.ID] = product
	return nil
}

// GetByID returns a catalog entry.
func (r *MemoryRepo) GetByID(ctx context.Context, productID string) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	product, ok := r.byID[productID]
	if !ok {
		return Product{}, ErrNotFound
	}
	return product, nil
}

// List returns catalog entries ordered by rating.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	all := make([]Product, 0, len(r.byID))
	for _, product := range r.byID {
		all = append(all, product)
	}
	r.mu.RUnlock()

	sortByRating(all)
	if offset >= len(all) {
		return []Product{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// FindOne returns the best-rated product matching the filter.
func (r *MemoryRepo) FindOne(ctx context.Context, filter Filter) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, err
	}
	if filter.SkinTypeTarget == "" && filter.SkinConcern == "" {
		return Product{}, ErrNotFound
	}

	r.mu.RLock()
	var matched []Product
	for _, product := range r.byID {
		if matches(product, filter) {
			matched = append(matched, product)
		}
	}
	r.mu.RUnlock()

	if len(matched) == 0 {
		return Product{}, ErrNotFound
	}
	sortByRating(matched)
	return matched[0], nil
}

func matches(product Product, filter Filter) bool {
	if filter.SkinTypeTarget != "" && product.SkinTypeTarget == filter.SkinTypeTarget {
		return true
	}
	if filter.SkinConcern != "" {
		for _, concern := range product.SkinConcernsTarget {
			if concern == filter.SkinConcern {
				return true
			}
		}
	}
	return false
}

func sortByRating(list []Product) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Rating != list[j].Rating {
			return list[i].Rating > list[j].Rating
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
