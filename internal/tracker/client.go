// Package tracker is a client for the Bugcrowd submissions API.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/JaimeStill/bugcrowd-triage/pkg/pagination"
)

const (
	mediaTypeBugcrowd   = "application/vnd.bugcrowd+json"
	mediaTypeBugcrowdV4 = "application/vnd.bugcrowd.v4+json"
	mediaTypeJSON       = "application/json"
)

// Client issues requests against the Bugcrowd API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	paging  pagination.Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a Client from a finalized Config.
func New(cfg *Config, logger *slog.Logger) *Client {
	limit := rate.Inf
	if d := cfg.PageDelayDuration(); d > 0 {
		limit = rate.Every(d)
	}

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.TimeoutDuration()},
		paging:  cfg.Pagination,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.With("system", "tracker"),
	}
}

// ListSubmissions pages through GET /submissions until an empty page and
// returns everything matching filter. Pages are spaced by the configured
// delay. A nil slice means nothing matched.
func (c *Client) ListSubmissions(ctx context.Context, filter Filter) ([]Submission, error) {
	c.logger.InfoContext(ctx, "fetching submissions", "program", filter.Program, "state", filter.State)

	var all []Submission
	params := filter.Values()

	for page := pagination.First(c.paging); ; page = page.Next() {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		endpoint := fmt.Sprintf("%s/submissions?%s", c.baseURL, page.Apply(params, pagination.JSONAPIKeys).Encode())

		status, body, err := c.do(ctx, http.MethodGet, endpoint, mediaTypeBugcrowd, "", nil)
		if err != nil {
			return nil, fmt.Errorf("list submissions: %w", err)
		}
		if status != http.StatusOK {
			return nil, &APIError{Op: "list submissions", StatusCode: status}
		}

		var result listResponse
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("parse submissions page: %w", err)
		}

		if len(result.Data) == 0 {
			break
		}

		c.logger.DebugContext(ctx, "fetched submissions page",
			"offset", page.Offset,
			"count", len(result.Data),
		)
		all = append(all, result.Data...)
	}

	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// FetchSubmission retrieves a single submission by id.
func (c *Client) FetchSubmission(ctx context.Context, id string) (*Submission, error) {
	c.logger.DebugContext(ctx, "fetching submission", "submission_id", id)

	endpoint := fmt.Sprintf("%s/submissions/%s", c.baseURL, url.PathEscape(id))

	status, body, err := c.do(ctx, http.MethodGet, endpoint, mediaTypeBugcrowd, "", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch submission %s: %w", id, err)
	}
	if status != http.StatusOK {
		return nil, &APIError{Op: "fetch submission " + id, StatusCode: status}
	}

	var result singleResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse submission %s: %w", id, err)
	}
	if result.Data == nil {
		return nil, fmt.Errorf("fetch submission %s: %w", id, ErrEmptyResponse)
	}

	return result.Data, nil
}

// PatchSubmission applies doc to the submission with the given id.
func (c *Client) PatchSubmission(ctx context.Context, id string, doc Document) error {
	c.logger.InfoContext(ctx, "patching submission", "submission_id", id)

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal patch: %w", err)
	}

	endpoint := fmt.Sprintf("%s/submissions/%s", c.baseURL, url.PathEscape(id))

	status, _, err := c.do(ctx, http.MethodPatch, endpoint, mediaTypeBugcrowd, mediaTypeBugcrowdV4, payload)
	if err != nil {
		return fmt.Errorf("patch submission %s: %w", id, err)
	}
	if status != http.StatusOK {
		return &APIError{Op: "patch submission " + id, StatusCode: status}
	}
	return nil
}

// CloseSubmission sets the submission's remote state to not_applicable.
func (c *Client) CloseSubmission(ctx context.Context, id string) error {
	return c.PatchSubmission(ctx, id, CloseDocument())
}

// AssignSubmission makes identityID the submission's assignee.
func (c *Client) AssignSubmission(ctx context.Context, id, identityID string) error {
	return c.PatchSubmission(ctx, id, AssignDocument(identityID))
}

// CreateComment posts doc to /comments. 201 is success. 400, 404 and 409
// responses yield an APIError carrying the first error detail from the body.
func (c *Client) CreateComment(ctx context.Context, doc Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}

	endpoint := c.baseURL + "/comments"

	status, body, err := c.do(ctx, http.MethodPost, endpoint, mediaTypeJSON, mediaTypeJSON, payload)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}

	switch status {
	case http.StatusCreated:
		c.logger.InfoContext(ctx, "comment created")
		return nil
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict:
		return &APIError{Op: "create comment", StatusCode: status, Detail: errorDetail(body)}
	default:
		return &APIError{Op: "create comment", StatusCode: status}
	}
}

// Comment posts body as an everyone-visible comment on the submission.
func (c *Client) Comment(ctx context.Context, submissionID, body string) error {
	return c.CreateComment(ctx, CommentDocument(submissionID, body))
}

func (c *Client) do(
	ctx context.Context,
	method, endpoint, accept, contentType string,
	payload []byte,
) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", accept)
	req.Header.Set("Authorization", "Token "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	return resp.StatusCode, body, nil
}

func errorDetail(body []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Errors) == 0 || parsed.Errors[0].Detail == "" {
		return unparsableDetail
	}
	return parsed.Errors[0].Detail
}
