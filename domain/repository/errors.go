package repository

import "errors"

// ErrNotFound is returned by writes that target a row which does not exist.
var ErrNotFound = errors.New("record not found")
