package photos

import "time"

// Metadata carries the user-declared skin profile captured with a photo.
// The analysis engine reads it to bias synthetic output; a future
// inference service would receive it alongside the image.
type Metadata struct {
	SkinType     string   `json:"skin_type,omitempty"`
	SkinConcerns []string `json:"skin_concerns,omitempty"`
}

// Photo represents an uploaded skin photo owned by a user.
type Photo struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	FilePath      string    `json:"-"`
	ThumbnailPath string    `json:"-"`
	MimeType      string    `json:"mimeType,omitempty"`
	SizeBytes     int64     `json:"sizeBytes,omitempty"`
	TakenAt       time.Time `json:"takenAt"`
	Metadata      Metadata  `json:"metadata"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
