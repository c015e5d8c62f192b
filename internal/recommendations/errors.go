package recommendations

import "errors"

var ErrNotFound = errors.New("recommendation not found")
