package analysis

import (
	"context"

	"skincare-backend/internal/photos"
)

// Engine produces a structured result from a photo. Implementations may
// consult the photo's declared metadata to bias their output; swapping
// in a real inference backend must not change this contract.
type Engine interface {
	Analyze(ctx context.Context, photo photos.Photo) (Result, error)
}
