package photos

import "errors"

var ErrNotFound = errors.New("photo not found")
