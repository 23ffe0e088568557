package store

import "errors"

var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("version conflict")
	ErrAlreadyUnlocked = errors.New("achievement already unlocked")
)
