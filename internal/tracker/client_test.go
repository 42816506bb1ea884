package tracker_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JaimeStill/bugcrowd-triage/internal/tracker"
	"github.com/JaimeStill/bugcrowd-triage/pkg/pagination"
)

func newClient(t *testing.T, srv *httptest.Server, pageSize int) *tracker.Client {
	t.Helper()
	return newPacedClient(t, srv, pageSize, "0s")
}

func newPacedClient(t *testing.T, srv *httptest.Server, pageSize int, delay string) *tracker.Client {
	t.Helper()
	cfg := tracker.Config{
		BaseURL:    srv.URL,
		Token:      "secret",
		Program:    "acme",
		PageDelay:  delay,
		Pagination: pagination.Config{PageSize: pageSize},
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	return tracker.New(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func submissionJSON(id, state string) string {
	return fmt.Sprintf(`{"id":%q,"type":"submission","attributes":{"state":%q,"description":"desc %s"},`+
		`"relationships":{"researcher":{"data":{"id":"user-%s","type":"identity"}}}}`, id, state, id, id)
}

func TestListSubmissionsPaginates(t *testing.T) {
	var (
		mu      sync.Mutex
		offsets []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/submissions" {
			t.Errorf("path = %s, want /submissions", r.URL.Path)
		}
		q := r.URL.Query()
		if got := q.Get("filter[program]"); got != "acme" {
			t.Errorf("filter[program] = %q", got)
		}
		if got := q.Get("filter[state]"); got != "new" {
			t.Errorf("filter[state] = %q", got)
		}
		if got := q.Get("filter[duplicate]"); got != "false" {
			t.Errorf("filter[duplicate] = %q", got)
		}
		if got := q.Get("page[limit]"); got != "2" {
			t.Errorf("page[limit] = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.bugcrowd+json" {
			t.Errorf("Accept = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Token secret" {
			t.Errorf("Authorization = %q", got)
		}

		offset := q.Get("page[offset]")
		mu.Lock()
		offsets = append(offsets, offset)
		mu.Unlock()

		n, _ := strconv.Atoi(offset)
		var items []string
		switch n {
		case 0:
			items = []string{submissionJSON("1", "new"), submissionJSON("2", "new")}
		case 2:
			items = []string{submissionJSON("3", "new")}
		}
		fmt.Fprintf(w, `{"data":[%s]}`, strings.Join(items, ","))
	}))
	defer srv.Close()

	client := newClient(t, srv, 2)

	got, err := client.ListSubmissions(context.Background(), tracker.Filter{
		Program: "acme",
		State:   tracker.StateNew,
	})
	if err != nil {
		t.Fatalf("ListSubmissions() error = %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[2].ID != "3" || got[2].ResearcherID() != "user-3" || got[2].Attributes.Description != "desc 3" {
		t.Errorf("third submission = %+v", got[2])
	}
	if strings.Join(offsets, ",") != "0,2,4" {
		t.Errorf("offsets = %v, want 0,2,4", offsets)
	}
}

func TestListSubmissionsSpacesPages(t *testing.T) {
	const delay = 50 * time.Millisecond

	var (
		mu       sync.Mutex
		requests []time.Time
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, time.Now())
		mu.Unlock()

		n, _ := strconv.Atoi(r.URL.Query().Get("page[offset]"))
		if n < 2 {
			fmt.Fprintf(w, `{"data":[%s]}`, submissionJSON(strconv.Itoa(n), "new"))
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	got, err := newPacedClient(t, srv, 1, delay.String()).
		ListSubmissions(context.Background(), tracker.Filter{Program: "acme"})
	if err != nil {
		t.Fatalf("ListSubmissions() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	if len(requests) != 3 {
		t.Fatalf("requests = %d, want 3", len(requests))
	}
	// rate.Limiter accounting can land a fraction of a millisecond early.
	const slack = 5 * time.Millisecond
	for i := 1; i < len(requests); i++ {
		if gap := requests[i].Sub(requests[i-1]); gap < delay-slack {
			t.Errorf("gap before page %d = %v, want at least %v", i, gap, delay)
		}
	}
}

func TestListSubmissionsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer srv.Close()

	got, err := newClient(t, srv, 100).ListSubmissions(context.Background(), tracker.Filter{Program: "acme"})
	if err != nil {
		t.Fatalf("ListSubmissions() error = %v", err)
	}
	if got != nil {
		t.Errorf("ListSubmissions() = %v, want nil", got)
	}
}

func TestListSubmissionsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newClient(t, srv, 100).ListSubmissions(context.Background(), tracker.Filter{Program: "acme"})

	var apiErr *tracker.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("error = %v, want 401 APIError", err)
	}
}

func TestFetchSubmission(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/submissions/abc":
			fmt.Fprintf(w, `{"data":%s}`, submissionJSON("abc", "Triaged"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := newClient(t, srv, 100)

	sub, err := client.FetchSubmission(context.Background(), "abc")
	if err != nil {
		t.Fatalf("FetchSubmission() error = %v", err)
	}
	if sub.Attributes.State != "Triaged" || sub.IsNew() {
		t.Errorf("state = %q, IsNew = %v", sub.Attributes.State, sub.IsNew())
	}

	_, err = client.FetchSubmission(context.Background(), "missing")
	if !tracker.IsNotFound(err) {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestIsNewIgnoresCase(t *testing.T) {
	for _, state := range []string{"new", "NEW", "New"} {
		s := tracker.Submission{Attributes: tracker.SubmissionAttributes{State: state}}
		if !s.IsNew() {
			t.Errorf("IsNew(%q) = false", state)
		}
	}
}

func TestCloseAndAssignSubmission(t *testing.T) {
	var bodies []map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/submissions/abc" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Content-Type"); got != "application/vnd.bugcrowd.v4+json" {
			t.Errorf("Content-Type = %q", got)
		}
		var doc map[string]any
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			t.Errorf("decode body: %v", err)
		}
		bodies = append(bodies, doc)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newClient(t, srv, 100)

	if err := client.CloseSubmission(context.Background(), "abc"); err != nil {
		t.Fatalf("CloseSubmission() error = %v", err)
	}
	if err := client.AssignSubmission(context.Background(), "abc", "ident-1"); err != nil {
		t.Fatalf("AssignSubmission() error = %v", err)
	}

	closeData := bodies[0]["data"].(map[string]any)
	if closeData["type"] != "submission" {
		t.Errorf("close type = %v", closeData["type"])
	}
	if state := closeData["attributes"].(map[string]any)["state"]; state != "not_applicable" {
		t.Errorf("close state = %v", state)
	}

	assignee := bodies[1]["data"].(map[string]any)["relationships"].(map[string]any)["assignee"].(map[string]any)["data"].(map[string]any)
	if assignee["id"] != "ident-1" || assignee["type"] != "identity" {
		t.Errorf("assignee = %v", assignee)
	}
}

func TestPatchSubmissionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	err := newClient(t, srv, 100).CloseSubmission(context.Background(), "abc")

	var apiErr *tracker.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("error = %v, want 422 APIError", err)
	}
}

func TestComment(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantErr    bool
		wantDetail string
	}{
		{name: "created", status: http.StatusCreated},
		{
			name:       "bad request with detail",
			status:     http.StatusBadRequest,
			body:       `{"errors":[{"detail":"body is too short"}]}`,
			wantErr:    true,
			wantDetail: "body is too short",
		},
		{
			name:       "conflict with unparsable body",
			status:     http.StatusConflict,
			body:       `not json`,
			wantErr:    true,
			wantDetail: "an error occurred, but the response is not a valid JSON object",
		},
		{
			name:       "not found without errors member",
			status:     http.StatusNotFound,
			body:       `{"message":"gone"}`,
			wantErr:    true,
			wantDetail: "an error occurred, but the response is not a valid JSON object",
		},
		{name: "server error", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received map[string]any

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/comments" {
					t.Errorf("request = %s %s", r.Method, r.URL.Path)
				}
				if got := r.Header.Get("Accept"); got != "application/json" {
					t.Errorf("Accept = %q", got)
				}
				_ = json.NewDecoder(r.Body).Decode(&received)
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			err := newClient(t, srv, 100).Comment(context.Background(), "abc", "Hello!\n\nThanks.")

			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Comment() error = %v", err)
				}
			} else {
				var apiErr *tracker.APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("error = %v, want APIError", err)
				}
				if apiErr.StatusCode != tt.status {
					t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
				}
				if apiErr.Detail != tt.wantDetail {
					t.Errorf("Detail = %q, want %q", apiErr.Detail, tt.wantDetail)
				}
				if got, want := tracker.IsClientError(err), tt.wantDetail != ""; got != want {
					t.Errorf("IsClientError() = %v, want %v", got, want)
				}
			}

			data := received["data"].(map[string]any)
			attrs := data["attributes"].(map[string]any)
			if data["type"] != "comment" || attrs["body"] != "Hello!\n\nThanks." || attrs["visibility_scope"] != "everyone" {
				t.Errorf("comment document = %v", received)
			}
			sub := data["relationships"].(map[string]any)["submission"].(map[string]any)["data"].(map[string]any)
			if sub["id"] != "abc" || sub["type"] != "submission" {
				t.Errorf("submission relationship = %v", sub)
			}
		})
	}
}
