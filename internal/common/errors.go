// Package common defines sentinel errors shared by the storage, persistence
// and session layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Storage-level errors.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrStorageTimeout     = errors.New("storage call did not complete")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrSyncRejected       = errors.New("sync rejected")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Validation errors, raised before any mutation happens.
	ErrMalformedImport = errors.New("malformed import")
	ErrInvalidURL      = errors.New("invalid url")
	ErrLastGroup       = errors.New("cannot delete the last group")
)
