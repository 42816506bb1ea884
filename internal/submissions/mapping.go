package submissions

import (
	"github.com/JaimeStill/bugcrowd-triage/pkg/query"
	"github.com/JaimeStill/bugcrowd-triage/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "submission", "s").
	Project("submission_id", "ID").
	Project("user_id", "UserID").
	Project("classification", "Classification").
	Project("reasoning", "Reasoning").
	Project("submission_state", "State").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field: "CreatedAt",
}

func scanSubmission(s repository.Scanner) (Submission, error) {
	var sub Submission
	err := s.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.Classification,
		&sub.Reasoning,
		&sub.State,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	return sub, err
}
