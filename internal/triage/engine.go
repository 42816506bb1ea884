// Package triage drives submissions through their local lifecycle: ingest
// classifies and records new remote submissions, resolve comments on and
// closes the ones whose category has a reply template.
package triage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/bugcrowd-triage/internal/categories"
	"github.com/JaimeStill/bugcrowd-triage/internal/classifier"
	"github.com/JaimeStill/bugcrowd-triage/internal/submissions"
	"github.com/JaimeStill/bugcrowd-triage/internal/tracker"
)

// CommentGreeting prefixes every posted reply template.
const CommentGreeting = "Hello!\n\n"

// Tracker is the subset of the Bugcrowd client the engine calls.
type Tracker interface {
	ListSubmissions(ctx context.Context, filter tracker.Filter) ([]tracker.Submission, error)
	FetchSubmission(ctx context.Context, id string) (*tracker.Submission, error)
	Comment(ctx context.Context, submissionID, body string) error
	AssignSubmission(ctx context.Context, id, identityID string) error
	CloseSubmission(ctx context.Context, id string) error
}

// Classifier maps submission text to a category. It must not fail.
type Classifier interface {
	Classify(ctx context.Context, text string) classifier.Result
}

// Options configures an Engine.
type Options struct {
	// Program is the Bugcrowd program code new submissions are pulled from.
	Program string
	// AssigneeID, when set, is assigned to a submission before it is closed.
	AssigneeID string
}

// Engine runs the ingest and resolve phases. It holds the process-lifetime
// seen-set and is not safe for concurrent use.
type Engine struct {
	opts       Options
	tracker    Tracker
	classifier Classifier
	store      submissions.System
	set        *categories.Set
	seen       map[string]struct{}
	logger     *slog.Logger
}

// NewEngine creates an Engine over its collaborators.
func NewEngine(
	opts Options,
	tr Tracker,
	cl Classifier,
	store submissions.System,
	set *categories.Set,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		opts:       opts,
		tracker:    tr,
		classifier: cl,
		store:      store,
		set:        set,
		seen:       make(map[string]struct{}),
		logger:     logger.With("system", "triage"),
	}
}

// Ingest fetches new, non-duplicate submissions for the program, classifies
// each one not yet seen by this engine and records it as NEW. Per-submission
// failures are logged and counted; only the initial listing failure is returned.
func (e *Engine) Ingest(ctx context.Context) (Report, error) {
	var report Report

	subs, err := e.tracker.ListSubmissions(ctx, tracker.Filter{
		Program:   e.opts.Program,
		State:     tracker.StateNew,
		Duplicate: false,
	})
	if err != nil {
		return report, fmt.Errorf("list submissions: %w", err)
	}

	report.Fetched = len(subs)
	if len(subs) == 0 {
		e.logger.InfoContext(ctx, "no new submissions")
		return report, nil
	}

	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		if _, ok := e.seen[sub.ID]; ok {
			report.Skipped++
			continue
		}

		result := e.classifier.Classify(ctx, sub.Attributes.Description)
		e.seen[sub.ID] = struct{}{}

		inserted, err := e.store.Insert(ctx, submissions.CreateCommand{
			ID:             sub.ID,
			UserID:         sub.ResearcherID(),
			Classification: result.Category.String(),
			Reasoning:      result.Reasoning,
			State:          submissions.StateNew,
		})
		switch {
		case err != nil:
			e.logger.ErrorContext(ctx, "failed to record submission", "submission_id", sub.ID, "error", err)
			report.Failed++
		case inserted:
			report.Inserted++
			if _, ok := e.set.Response(result.Category); !ok {
				e.logger.DebugContext(ctx, "classification has no response, submission stays NEW",
					"submission_id", sub.ID,
					"classification", result.Category.String(),
				)
			}
		default:
			report.Skipped++
		}
	}

	return report, nil
}

// Resolve acts on NEW rows whose category has a reply template. Each row's
// live state is re-checked first: rows no longer new remotely move to
// UPDATED_OUT_OF_BAND without any remote write, the rest get the reply
// comment, are closed and move to UPDATED.
func (e *Engine) Resolve(ctx context.Context) (Report, error) {
	var report Report

	responding := categories.Labels(e.set.ResponseCategories())
	if len(responding) == 0 {
		e.logger.DebugContext(ctx, "no response categories configured")
		return report, nil
	}

	rows, err := e.store.ListByStateAndClassification(ctx, []submissions.State{submissions.StateNew}, responding)
	if err != nil {
		return report, fmt.Errorf("list pending submissions: %w", err)
	}
	report.Fetched = len(rows)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		e.resolve(ctx, row, &report)
	}

	return report, nil
}

func (e *Engine) resolve(ctx context.Context, row submissions.Submission, report *Report) {
	logger := e.logger.With("submission_id", row.ID, "classification", row.Classification)

	live, err := e.tracker.FetchSubmission(ctx, row.ID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.WarnContext(ctx, "live submission unavailable, treating as updated out of band", "error", err)
	}

	if live == nil || !live.IsNew() {
		e.transition(ctx, logger, row.ID, submissions.StateUpdatedOutOfBand, report)
		return
	}

	body, ok := e.comment(row.Classification)
	if !ok {
		logger.DebugContext(ctx, "no response template for classification")
		report.Untouched++
		return
	}

	if err := e.tracker.Comment(ctx, row.ID, body); err != nil {
		if tracker.IsClientError(err) {
			logger.WarnContext(ctx, "comment rejected by tracker", "error", err)
		} else {
			logger.ErrorContext(ctx, "failed to post comment", "error", err)
		}
		report.Failed++
		return
	}

	if e.opts.AssigneeID != "" {
		if err := e.tracker.AssignSubmission(ctx, row.ID, e.opts.AssigneeID); err != nil {
			logger.WarnContext(ctx, "failed to assign submission", "assignee_id", e.opts.AssigneeID, "error", err)
		}
	}

	if err := e.tracker.CloseSubmission(ctx, row.ID); err != nil {
		logger.ErrorContext(ctx, "comment posted but close failed", "error", err)
		report.Failed++
		return
	}

	e.transition(ctx, logger, row.ID, submissions.StateUpdated, report)
}

func (e *Engine) comment(classification string) (string, bool) {
	c, ok := e.set.Lookup(classification)
	if !ok {
		return "", false
	}
	tmpl, ok := e.set.Response(c)
	if !ok {
		return "", false
	}
	return CommentGreeting + tmpl, true
}

func (e *Engine) transition(
	ctx context.Context,
	logger *slog.Logger,
	id string,
	next submissions.State,
	report *Report,
) {
	updated, err := e.store.UpdateState(ctx, id, next)
	if err != nil {
		logger.ErrorContext(ctx, "failed to update submission state", "state", next, "error", err)
		report.Failed++
		return
	}
	if !updated {
		logger.WarnContext(ctx, "submission vanished before state update", "state", next)
		report.Failed++
		return
	}

	switch next {
	case submissions.StateUpdated:
		report.Updated++
	case submissions.StateUpdatedOutOfBand:
		report.OutOfBand++
	}
}
