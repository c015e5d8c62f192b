package products

import "time"

// Product is a catalog entry that recommendations can point at.
type Product struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Brand              string    `json:"brand"`
	ImagePath          string    `json:"imagePath"`
	Category           string    `json:"category"`
	Ingredients        []string  `json:"ingredients"`
	Description        string    `json:"description"`
	Rating             float64   `json:"rating"`
	SkinTypeTarget     string    `json:"skinTypeTarget"`
	SkinConcernsTarget []string  `json:"skinConcernsTarget"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Filter narrows a catalog lookup. Either field may be empty; when both
// are set a product matching either one qualifies.
type Filter struct {
	SkinTypeTarget string
	SkinConcern    string
}
