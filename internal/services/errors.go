/**
 * @description
 * Sentinel errors shared by the service layer.
 * Handlers translate these into HTTP status codes at the boundary.
 */

package services

import "errors"

var (
	// ErrUserNotFound is returned when the referenced user does not exist
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameTaken is returned when registering a username that already exists
	ErrUsernameTaken = errors.New("username is already taken")
	// ErrNoGuess is returned when a user has never submitted a guess
	ErrNoGuess = errors.New("no guess found for user")
	// ErrGuessPending is returned when a user still has an unresolved guess
	ErrGuessPending = errors.New("an unresolved guess already exists for this user")
)
