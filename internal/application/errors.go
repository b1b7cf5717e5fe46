package application

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAuthenticated   = errors.New("not signed in")
	ErrForbidden          = errors.New("not allowed to modify this entry")
	ErrEntryNotFound      = errors.New("entry not found")
	ErrSearchDisabled     = errors.New("entry search is not configured")
	ErrExportDisabled     = errors.New("entry export is not configured")
)

// AuthBackendError means the auth backend rejected a sign-in, sign-up or sign-out.
type AuthBackendError struct {
	Op  string
	Err error
}

func (e *AuthBackendError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *AuthBackendError) Unwrap() error { return e.Err }

// ValidationError is a local rejection of user input, raised before any backend call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + " " + e.Message }

// StoreError means the record store failed or rejected a data operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }
