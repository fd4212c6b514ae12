package domain

import "errors"

// Sentinel errors for the domain layer.
var (
	ErrNotFound          = errors.New("domain: not found")
	ErrConflict          = errors.New("domain: conflict")
	ErrUnauthorized      = errors.New("domain: unauthorized")
	ErrForbidden         = errors.New("domain: forbidden")
	ErrValidation        = errors.New("domain: validation failed")
	ErrInvalidTransition = errors.New("domain: invalid state transition")
)

// Anchoring failure classes. They travel inside SubmitResult.Err and are never
// returned to the content-creation caller.
var (
	ErrTransientAnchor = errors.New("domain: transient anchor failure")
	ErrPermanentAnchor = errors.New("domain: permanent anchor failure")
)
