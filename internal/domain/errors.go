package domain

import "errors"

var (
	ErrValidation   = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrForbidden    = errors.New("forbidden")
	ErrExpired      = errors.New("expired")
	ErrConflict     = errors.New("already exists")
	ErrCorruptData  = errors.New("corrupt stored data")
	ErrLockHeld     = errors.New("lock already held")
)
