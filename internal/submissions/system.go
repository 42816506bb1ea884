package submissions

import "context"

// System defines the persistence contract for submission rows.
type System interface {
	// Find returns the submission with the given id or ErrNotFound.
	Find(ctx context.Context, id string) (*Submission, error)

	// Insert stores a new submission. It reports false without error when a
	// row with the same id already exists; the existing row is left unchanged.
	Insert(ctx context.Context, cmd CreateCommand) (bool, error)

	// UpdateState moves a submission to next. It reports false without
	// writing when the id is unknown, and returns ErrInvalidTransition when
	// the current state may not move to next.
	UpdateState(ctx context.Context, id string, next State) (bool, error)

	// ListByStateAndClassification returns submissions whose state is one of
	// states and whose classification is one of classifications, oldest first.
	ListByStateAndClassification(ctx context.Context, states []State, classifications []string) ([]Submission, error)
}
