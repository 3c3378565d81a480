package domain

import "errors"

// Store-level errors. Services translate these into pkg/errors AppErrors.
var (
	ErrNotFound        = errors.New("record not found")
	ErrConflict        = errors.New("unique constraint conflict")
	ErrAlreadyRecorded = errors.New("reading session already recorded")
	ErrInvalidToken    = errors.New("invalid token")
	ErrSessionMismatch = errors.New("reading session does not fit its book")
)
