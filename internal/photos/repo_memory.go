package photos

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores photos in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Photo
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Photo)}
}

var _ Repo = (*MemoryRepo)(nil)

// Create stores the photo.
func (r *MemoryRepo) Create(ctx context.Context, photo Photo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[photo.ID] = photo
	return nil
}

// GetByID returns a photo owned by the given user.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, photoID string) (Photo, error) {
	if err := ctx.Err(); err != nil {
		return Photo{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	photo, ok := r.byID[photoID]
	if !ok || photo.UserID != userID {
		return Photo{}, ErrNotFound
	}
	return photo, nil
}

// ListByUser returns a user's photos, newest first.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Photo, error) {
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
	var owned []Photo
	for _, photo := range r.byID {
		if photo.UserID == userID {
			owned = append(owned, photo)
		}
	}
	r.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	if offset >= len(owned) {
		return []Photo{}, nil
	}
	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], nil
}

// LatestByUser returns the most recently uploaded photo for a user.
func (r *MemoryRepo) LatestByUser(ctx context.Context, userID string) (Photo, error) {
	list, err := r.ListByUser(ctx, userID, 1, 0)
	if err != nil {
		return Photo{}, err
	}
	if len(list) == 0 {
		return Photo{}, ErrNotFound
	}
	return list[0], nil
}

// UpdateMetadata replaces the declared skin profile on a photo.
func (r *MemoryRepo) UpdateMetadata(ctx context.Context, userID, photoID string, metadata Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	photo, ok := r.byID[photoID]
	if !ok || photo.UserID != userID {
		return ErrNotFound
	}
	photo.Metadata = metadata
	photo.UpdatedAt = time.Now().UTC()
	r.byID[photoID] = photo
	return nil
}

// Delete removes a photo.
func (r *MemoryRepo) Delete(ctx context.Context, userID, photoID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	photo, ok := r.byID[photoID]
	if !ok || photo.UserID != userID {
		return ErrNotFound
	}
	delete(r.byID, photoID)
	return nil
}
