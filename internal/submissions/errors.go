package submissions

import "errors"

// Domain errors for submission operations.
var (
	ErrNotFound          = errors.New("submission not found")
	ErrDuplicate         = errors.New("submission already exists")
	ErrInvalidState      = errors.New("invalid submission state")
	ErrInvalidTransition = errors.New("invalid submission state transition")
)
