package flock

import "errors"

var (
	// ErrLockFailed is returned when the locking mechanism itself
	// malfunctioned: a bad descriptor, an unsupported platform call, an
	// invalid flag combination, or a failed fallback path. It is never
	// retried.
	ErrLockFailed = errors.New("failed to acquire lock")
	// ErrAlreadyLocked is returned when the resource is currently held by
	// another owner. Callers may retry or give up.
	ErrAlreadyLocked = errors.New("file is already locked")
	// ErrFileTooLarge is reserved for backends whose lock range cannot
	// describe the whole file. The current backends lock fixed sentinel
	// ranges independent of file size and do not produce it.
	ErrFileTooLarge = errors.New("file is too large to lock")
)
