package triage_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/JaimeStill/bugcrowd-triage/internal/categories"
	"github.com/JaimeStill/bugcrowd-triage/internal/classifier"
	"github.com/JaimeStill/bugcrowd-triage/internal/submissions"
	"github.com/JaimeStill/bugcrowd-triage/internal/tracker"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scenarioSet(t *testing.T) *categories.Set {
	t.Helper()
	set, err := categories.New(
		[]string{"Spam", "Valid Bug"},
		"Spam",
		[]categories.Response{{Name: "Valid Bug", Template: "Thanks, triaging."}},
	)
	if err != nil {
		t.Fatalf("categories.New() error = %v", err)
	}
	return set
}

type comment struct {
	submissionID string
	body         string
}

type fakeTracker struct {
	listed    []tracker.Submission
	listErr   error
	live      map[string]string
	commentFn func(id string) error
	closeErr  error
	assignErr error

	filters  []tracker.Filter
	fetched  []string
	comments []comment
	assigned []string
	closed   []string
}

func (f *fakeTracker) ListSubmissions(_ context.Context, filter tracker.Filter) ([]tracker.Submission, error) {
	f.filters = append(f.filters, filter)
	return f.listed, f.listErr
}

func (f *fakeTracker) FetchSubmission(_ context.Context, id string) (*tracker.Submission, error) {
	f.fetched = append(f.fetched, id)
	state, ok := f.live[id]
	if !ok {
		return nil, &tracker.APIError{Op: "fetch submission " + id, StatusCode: 404}
	}
	return &tracker.Submission{ID: id, Attributes: tracker.SubmissionAttributes{State: state}}, nil
}

func (f *fakeTracker) Comment(_ context.Context, id, body string) error {
	if f.commentFn != nil {
		if err := f.commentFn(id); err != nil {
			return err
		}
	}
	f.comments = append(f.comments, comment{id, body})
	return nil
}

func (f *fakeTracker) AssignSubmission(_ context.Context, id, identityID string) error {
	if f.assignErr != nil {
		return f.assignErr
	}
	f.assigned = append(f.assigned, id+":"+identityID)
	return nil
}

func (f *fakeTracker) CloseSubmission(_ context.Context, id string) error {
	if f.closeErr != nil {
		return f.closeErr
	}
	f.closed = append(f.closed, id)
	return nil
}

func (f *fakeTracker) remoteCalls() int {
	return len(f.comments) + len(f.assigned) + len(f.closed)
}

type fakeClassifier struct {
	set       *categories.Set
	responses map[string]string
	calls     []string
}

func (f *fakeClassifier) Classify(_ context.Context, text string) classifier.Result {
	f.calls = append(f.calls, text)
	content, ok := f.responses[text]
	if !ok {
		return classifier.Result{Category: f.set.Default(), Reasoning: classifier.FallbackReasoning}
	}
	result, ok := classifier.Parse(f.set, content)
	if !ok {
		return classifier.Result{Category: f.set.Default(), Reasoning: classifier.FallbackReasoning}
	}
	return result
}

// memoryStore is an in-memory submissions.System.
type memoryStore struct {
	mu        sync.Mutex
	rows      map[string]submissions.Submission
	order     []string
	insertErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{rows: make(map[string]submissions.Submission)}
}

func (m *memoryStore) Find(_ context.Context, id string) (*submissions.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return nil, submissions.ErrNotFound
	}
	return &row, nil
}

func (m *memoryStore) Insert(_ context.Context, cmd submissions.CreateCommand) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return false, m.insertErr
	}
	if _, ok := m.rows[cmd.ID]; ok {
		return false, nil
	}
	reasoning := cmd.Reasoning
	m.rows[cmd.ID] = submissions.Submission{
		ID:             cmd.ID,
		UserID:         cmd.UserID,
		Classification: cmd.Classification,
		Reasoning:      &reasoning,
		State:          cmd.State,
	}
	m.order = append(m.order, cmd.ID)
	return true, nil
}

func (m *memoryStore) UpdateState(_ context.Context, id string, next submissions.State) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[id]
	if !ok {
		return false, nil
	}
	if !row.State.CanTransition(next) {
		return false, fmt.Errorf("%w: %s -> %s", submissions.ErrInvalidTransition, row.State, next)
	}
	row.State = next
	m.rows[id] = row
	return true, nil
}

func (m *memoryStore) ListByStateAndClassification(
	_ context.Context,
	states []submissions.State,
	classifications []string,
) ([]submissions.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []submissions.Submission
	for _, id := range m.order {
		row := m.rows[id]
		if slices.Contains(states, row.State) && slices.Contains(classifications, row.Classification) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memoryStore) seed(t *testing.T, id, classification string) {
	t.Helper()
	if _, err := m.Insert(context.Background(), submissions.CreateCommand{
		ID:             id,
		Classification: classification,
		State:          submissions.StateNew,
	}); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func (m *memoryStore) state(t *testing.T, id string) submissions.State {
	t.Helper()
	row, err := m.Find(context.Background(), id)
	if err != nil {
		t.Fatalf("find %s: %v", id, err)
	}
	return row.State
}

var errRemote = errors.New("remote unavailable")
