package products

import "errors"

// ErrNotFound indicates no product matched.
var ErrNotFound = errors.New("product not found")
