package store

import "errors"

var (
	ErrEmptyFilter       = errors.New("update filter must not be empty")
	ErrEmptyChanges      = errors.New("update changes must not be empty")
	ErrDuplicateOperator = errors.New("operator email already registered")
)
