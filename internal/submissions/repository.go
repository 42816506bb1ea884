package submissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/bugcrowd-triage/pkg/query"
	"github.com/JaimeStill/bugcrowd-triage/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a submission repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "submissions"),
	}
}

func (r *repo) Find(ctx context.Context, id string) (*Submission, error) {
	r.logger.DebugContext(ctx, "fetching submission", "submission_id", id)

	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	s, err := repository.QueryOne(ctx, r.db, q, args, scanSubmission)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &s, nil
}

func (r *repo) Insert(ctx context.Context, cmd CreateCommand) (bool, error) {
	if cmd.State == "" {
		cmd.State = StateNew
	}
	if !cmd.State.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidState, cmd.State)
	}

	var reasoning *string
	if cmd.Reasoning != "" {
		reasoning = &cmd.Reasoning
	}

	insertQ := `
		INSERT INTO submission(
			submission_id, user_id, reasoning, classification, submission_state
		)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (submission_id) DO NOTHING`

	inserted, err := repository.ExecAffected(
		ctx, r.db, insertQ,
		cmd.ID, cmd.UserID, reasoning, cmd.Classification, string(cmd.State),
	)
	if err != nil {
		return false, fmt.Errorf("insert submission %s: %w", cmd.ID, err)
	}

	if !inserted {
		r.logger.InfoContext(ctx, "submission already exists, skipping insert", "submission_id", cmd.ID)
		return false, nil
	}

	r.logger.InfoContext(ctx, "submission inserted",
		"submission_id", cmd.ID,
		"classification", cmd.Classification,
		"state", cmd.State,
	)
	return true, nil
}

func (r *repo) UpdateState(ctx context.Context, id string, next State) (bool, error) {
	if !next.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidState, next)
	}

	selectQ, selectArgs := query.NewBuilder(projection).ForUpdate().BuildSingle("ID", id)

	updateQ := `
		UPDATE submission
		SET submission_state = $1, updated_at = NOW()
		WHERE submission_id = $2`

	prev, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (State, error) {
		current, err := repository.QueryOne(ctx, tx, selectQ, selectArgs, scanSubmission)
		if err != nil {
			return "", repository.MapError(err, ErrNotFound, ErrDuplicate)
		}

		if !current.State.CanTransition(next) {
			return current.State, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.State, next)
		}

		if err := repository.ExecExpectOne(ctx, tx, updateQ, string(next), id); err != nil {
			return current.State, fmt.Errorf("update submission state: %w", err)
		}

		return current.State, nil
	})

	if errors.Is(err, ErrNotFound) {
		r.logger.WarnContext(ctx, "submission not found for state update", "submission_id", id)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	r.logger.InfoContext(ctx, "submission state updated",
		"submission_id", id,
		"from", prev,
		"to", next,
	)
	return true, nil
}

func (r *repo) ListByStateAndClassification(
	ctx context.Context,
	states []State,
	classifications []string,
) ([]Submission, error) {
	r.logger.DebugContext(ctx, "fetching submissions by state and classification",
		"states", states,
		"classifications", classifications,
	)

	stateValues := make([]string, len(states))
	for i, s := range states {
		stateValues[i] = string(s)
	}

	q, args := query.
		NewBuilder(projection, defaultSort).
		WhereIn("State", query.Values(stateValues)).
		WhereIn("Classification", query.Values(classifications)).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanSubmission)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	return items, nil
}
