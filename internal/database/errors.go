package database

import "errors"

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("entity not found")

// ErrEmptyName is returned when a scenario is saved without a name
var ErrEmptyName = errors.New("scenario name must not be empty")
