// Package submissions persists the triage state of Bugcrowd submissions.
// Each row is created once at ingest and advances exactly once, from NEW to
// one of the terminal states.
package submissions

import "time"

// State is the local lifecycle state of a submission.
type State string

const (
	// StateNew marks a submission that was ingested and classified but not yet acted on.
	StateNew State = "NEW"
	// StateUpdatedOutOfBand marks a submission someone else triaged before the bot acted.
	StateUpdatedOutOfBand State = "UPDATED_OUT_OF_BAND"
	// StateUpdated marks a submission the bot commented on and closed.
	StateUpdated State = "UPDATED"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateNew, StateUpdatedOutOfBand, StateUpdated:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s State) Terminal() bool {
	return s == StateUpdated || s == StateUpdatedOutOfBand
}

// CanTransition reports whether a submission in state s may move to next.
// The only legal moves are NEW -> UPDATED and NEW -> UPDATED_OUT_OF_BAND.
func (s State) CanTransition(next State) bool {
	return s == StateNew && next.Terminal()
}

// Submission is a stored submission row.
type Submission struct {
	ID             string    `json:"submission_id"`
	UserID         string    `json:"user_id"`
	Classification string    `json:"classification"`
	Reasoning      *string   `json:"reasoning"`
	State          State     `json:"submission_state"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CreateCommand carries the data recorded when a submission is ingested.
type CreateCommand struct {
	ID             string
	UserID         string
	Classification string
	Reasoning      string
	State          State
}
