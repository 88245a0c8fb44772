package models

import "errors"

var (
	// ErrUnauthenticated means no user is signed in; the screen must not proceed.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrValidation is a local input rejection; nothing is written.
	ErrValidation = errors.New("validation error")
	// ErrMalformedRecord marks a single complaint document that failed to parse.
	ErrMalformedRecord = errors.New("malformed complaint record")

	ErrStoreRead  = errors.New("store read failed")
	ErrStoreWrite = errors.New("store write failed")

	ErrComplaintNotFound = errors.New("complaint not found")
	ErrUserNotFound      = errors.New("user not found")
)
