package photos

import "context"

// Repo defines persistence operations for skin photos.
type Repo interface {
	Create(ctx context.Context, photo Photo) error
	GetByID(ctx context.Context, userID, photoID string) (Photo, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Photo, error)
	LatestByUser(ctx context.Context, userID string) (Photo, error)
	UpdateMetadata(ctx context.Context, userID, photoID string, metadata Metadata) error
	Delete(ctx context.Context, userID, photoID string) error
}
