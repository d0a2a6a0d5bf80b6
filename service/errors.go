package service

import (
	"errors"
	"fmt"
)

var (
	// ErrDeviceUnavailable means the capture source could not be opened:
	// permission denied, hardware busy, or unsupported constraints.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrAlreadyRecording is lifecycle misuse, Start while Recording.
	ErrAlreadyRecording = errors.New("recording already in progress")

	// ErrNotRecording is Stop without a running recording.
	ErrNotRecording = errors.New("no recording in progress")

	// ErrSessionStopped means Start was called on a finished session.
	// A new recording requires a new session id.
	ErrSessionStopped = errors.New("session already stopped")

	ErrInvalidSession = errors.New("invalid session id")
	ErrInvalidIndex   = errors.New("invalid chunk index")
)

// StorageWriteError wraps a failed durable write with enough detail to
// tell a credential problem from a transient transport problem.
type StorageWriteError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageWriteError) Unwrap() error {
	return e.Err
}
