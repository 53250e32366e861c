package services

import "errors"

// Local failures. Backend failures are repositories.ErrRejected and
// repositories.ErrTransport.
var (
	// ErrValidation means required input was missing; no backend call was made.
	ErrValidation = errors.New("services: validation failed")
	// ErrInFlight means the same action is already waiting on the backend.
	ErrInFlight = errors.New("services: request already in flight")
	// ErrNotSignedIn means the action needs the sales screen.
	ErrNotSignedIn = errors.New("services: terminal is not signed in")
)
