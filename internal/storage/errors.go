package storage

import "errors"

// Common storage errors
var (
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrAlreadyClaimed      = errors.New("already claimed")
	ErrInsufficientBalance = errors.New("insufficient balance")
)
