package photos

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"skincare-backend/internal/shared/storage/object"
)

var ErrInvalidInput = errors.New("invalid input")

// Service contains business logic for skin photos.
type Service struct {
	Store object.ObjectStore
	Repo  Repo
}

// Upload saves the image to object storage and records the photo.
func (s *Service) Upload(ctx context.Context, userID, fileName string, r io.Reader, takenAt time.Time, metadata Metadata) (Photo, error) {
	if fileName == "" {
		return Photo{}, ErrInvalidInput
	}
	if takenAt.IsZero() {
		takenAt = time.Now().UTC()
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, userID, fileName, r)
	if err != nil {
		return Photo{}, err
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return Photo{}, ErrInvalidInput
	}

	photo := Photo{
		ID:        uuid.NewString(),
		UserID:    userID,
		FilePath:  storageKey,
		MimeType:  mimeType,
		SizeBytes: size,
		TakenAt:   takenAt,
		Metadata:  normalizeMetadata(metadata),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, photo); err != nil {
		return Photo{}, err
	}

	return photo, nil
}

// Get returns a photo owned by the user.
func (s *Service) Get(ctx context.Context, userID, photoID string) (Photo, error) {
	if userID == "" || photoID == "" {
		return Photo{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID, photoID)
}

// List returns a user's photos, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Photo, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Latest returns the most recently uploaded photo for a user.
func (s *Service) Latest(ctx context.Context, userID string) (Photo, error) {
	if userID == "" {
		return Photo{}, ErrInvalidInput
	}
	return s.Repo.LatestByUser(ctx, userID)
}

// UpdateMetadata merges the given declared skin profile into the photo.
// Empty fields keep the stored values (partial update, original behavior).
func (s *Service) UpdateMetadata(ctx context.Context, userID, photoID string, update Metadata) (Photo, error) {
	photo, err := s.Repo.GetByID(ctx, userID, photoID)
	if err != nil {
		return Photo{}, err
	}

	merged := photo.Metadata
	if strings.TrimSpace(update.SkinType) != "" {
		merged.SkinType = strings.TrimSpace(update.SkinType)
	}
	if update.SkinConcerns != nil {
		merged.SkinConcerns = normalizeMetadata(update).SkinConcerns
	}

	if err := s.Repo.UpdateMetadata(ctx, userID, photoID, merged); err != nil {
		return Photo{}, err
	}
	photo.Metadata = merged
	return photo, nil
}

// Delete removes a photo record; the stored object is left for the
// storage lifecycle policy to reap.
func (s *Service) Delete(ctx context.Context, userID, photoID string) error {
	if userID == "" || photoID == "" {
		return ErrInvalidInput
	}
	return s.Repo.Delete(ctx, userID, photoID)
}

func normalizeMetadata(m Metadata) Metadata {
	out := Metadata{SkinType: strings.TrimSpace(m.SkinType)}
	for _, concern := range m.SkinConcerns {
		if trimmed := strings.TrimSpace(concern); trimmed != "" {
			out.SkinConcerns = append(out.SkinConcerns, trimmed)
		}
	}
	return out
}
