package services

import "errors"

var (
	// ErrNoActivities means a refresh produced no valid events from any source
	ErrNoActivities = errors.New("no activities found")

	// ErrSnapshotNotFound means no snapshot is stored for the requested week or key
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrAlreadySubscribed means the email is already on the list
	ErrAlreadySubscribed = errors.New("already subscribed")

	// ErrInvalidEmail means the address could not be parsed
	ErrInvalidEmail = errors.New("invalid email address")
)
