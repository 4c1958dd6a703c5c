package domain

import "errors"

var (
	// ErrUnauthenticated is returned when an operation needs a signed-in user and none is present.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrRemoteWriteFailed wraps any failure of the gateway while persisting a vote.
	ErrRemoteWriteFailed = errors.New("remote write failed")
	// ErrStaleReadAfterWrite marks a failed authoritative read following a successful write.
	ErrStaleReadAfterWrite = errors.New("stale read after write")
	ErrInvalidDirection    = errors.New("invalid vote direction")
	ErrSubjectNotFound     = errors.New("subject not found")
	ErrTokenInvalid        = errors.New("access token invalid or expired")
)
