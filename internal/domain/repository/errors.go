package repository

import "errors"

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("record already exists")
	ErrAccessDenied = errors.New("access denied by store rules")

	// ErrAuthRejected matches every error an auth backend returns for a
	// refused request, as opposed to one it failed to serve.
	ErrAuthRejected = errors.New("rejected by auth backend")
)
