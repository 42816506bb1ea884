package tracker

import (
	"net/url"
	"strconv"
	"strings"
)

// StateNew is the remote state of a submission nobody has triaged yet.
const StateNew = "new"

// StateNotApplicable is the remote state the bot closes submissions into.
const StateNotApplicable = "not_applicable"

// Filter selects submissions for ListSubmissions.
type Filter struct {
	Program   string
	State     string
	Duplicate bool
}

// Values renders f as JSON:API filter query parameters.
func (f Filter) Values() url.Values {
	v := url.Values{}
	if f.Program != "" {
		v.Set("filter[program]", f.Program)
	}
	if f.State != "" {
		v.Set("filter[state]", f.State)
	}
	v.Set("filter[duplicate]", strconv.FormatBool(f.Duplicate))
	return v
}

// Identifier is a JSON:API resource identifier object.
type Identifier struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Relationship is a to-one JSON:API relationship.
type Relationship struct {
	Data *Identifier `json:"data"`
}

// SubmissionAttributes holds the submission fields the bot reads.
type SubmissionAttributes struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	State       string `json:"state,omitempty"`
}

// Submission is a Bugcrowd submission resource.
type Submission struct {
	ID            string                  `json:"id"`
	Type          string                  `json:"type"`
	Attributes    SubmissionAttributes    `json:"attributes"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
}

// ResearcherID returns the identity id of the reporting researcher, or ""
// when the relationship is absent.
func (s *Submission) ResearcherID() string {
	rel, ok := s.Relationships["researcher"]
	if !ok || rel.Data == nil {
		return ""
	}
	return rel.Data.ID
}

// IsNew reports whether the submission's remote state is "new", ignoring case.
func (s *Submission) IsNew() bool {
	return strings.EqualFold(s.Attributes.State, StateNew)
}

// Resource is the primary data of a write document.
type Resource struct {
	ID            string                  `json:"id,omitempty"`
	Type          string                  `json:"type"`
	Attributes    map[string]any          `json:"attributes,omitempty"`
	Relationships map[string]Relationship `json:"relationships,omitempty"`
}

// Document is a JSON:API request document.
type Document struct {
	Data Resource `json:"data"`
}

// CloseDocument moves a submission to not_applicable.
func CloseDocument() Document {
	return Document{Data: Resource{
		Type:       "submission",
		Attributes: map[string]any{"state": StateNotApplicable},
	}}
}

// AssignDocument sets the submission's assignee to the given identity.
func AssignDocument(identityID string) Document {
	return Document{Data: Resource{
		Type: "submission",
		Relationships: map[string]Relationship{
			"assignee": {Data: &Identifier{ID: identityID, Type: "identity"}},
		},
	}}
}

// CommentDocument builds a comment on submissionID visible to everyone.
func CommentDocument(submissionID, body string) Document {
	return Document{Data: Resource{
		Type: "comment",
		Attributes: map[string]any{
			"body":             body,
			"visibility_scope": "everyone",
		},
		Relationships: map[string]Relationship{
			"submission": {Data: &Identifier{ID: submissionID, Type: "submission"}},
		},
	}}
}

type listResponse struct {
	Data []Submission `json:"data"`
}

type singleResponse struct {
	Data *Submission `json:"data"`
}

type errorResponse struct {
	Errors []struct {
		Detail string `json:"detail"`
	} `json:"errors"`
}
