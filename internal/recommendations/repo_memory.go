package recommendations

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores recommendations in memory and is safe for
// concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Recommendation
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Recommendation)}
}

var _ Repo = (*MemoryRepo)(nil)

// Create stores the recommendation.
func (r *MemoryRepo) Create(ctx context.Context, rec Recommendation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rec.ID] = rec
	return nil
}

// GetByID returns a recommendation owned by the given user.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, recID string) (Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return Recommendation{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byID[recID]
	if !ok || rec.UserID != userID {
		return Recommendation{}, ErrNotFound
	}
	return rec, nil
}

// GetByAnalysisID returns the newest recommendation for an analysis.
func (r *MemoryRepo) GetByAnalysisID(ctx context.Context, userID, analysisID string) (Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return Recommendation{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest Recommendation
	found := false
	for _, rec := range r.byID {
		if rec.UserID != userID || rec.AnalysisID != analysisID {
			continue
		}
		if !found || rec.CreatedAt.After(latest.CreatedAt) {
			latest = rec
			found = true
		}
	}
	if !found {
		return Recommendation{}, ErrNotFound
	}
	return latest, nil
}

// ListByUser lists recommendations newest-first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Recommendation, error) {
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
	var owned []Recommendation
	for _, rec := range r.byID {
		if rec.UserID == userID {
			owned = append(owned, rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	if offset >= len(owned) {
		return []Recommendation{}, nil
	}
	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], nil
}

// LatestByUser returns the most recent recommendation for a user.
func (r *MemoryRepo) LatestByUser(ctx context.Context, userID string) (Recommendation, error) {
	list, err := r.ListByUser(ctx, userID, 1, 0)
	if err != nil {
		return Recommendation{}, err
	}
	if len(list) == 0 {
		return Recommendation{}, ErrNotFound
	}
	return list[0], nil
}
