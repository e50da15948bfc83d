package repository

import "errors"

var (
	ErrAmbiguousUpdate = errors.New("image update affected more than one row")
	ErrLockHeld        = errors.New("another image update run holds the lock")
	ErrCacheMiss       = errors.New("image cache miss")
)
