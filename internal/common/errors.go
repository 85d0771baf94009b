// Package common defines the sentinel errors shared by the catalog, filter,
// roster and persistence layers. Callers match them with errors.Is; every
// layer wraps them with context via fmt.Errorf("...: %w", ...).
package common

import "errors"

var (
	// ErrNotFound covers unknown species names, generations and roster ids.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a roster name already exists for the owner.
	ErrConflict = errors.New("name conflict")

	// ErrValidation marks input rejected before it reaches a collaborator.
	ErrValidation = errors.New("validation error")

	// ErrUpstreamUnavailable marks a failed or timed out catalog fetch.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrCancelled is the normal outcome of a superseded or torn-down request.
	// It is never shown to the user as a failure.
	ErrCancelled = errors.New("cancelled")
)
