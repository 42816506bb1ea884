package categories

import "errors"

var (
	// ErrNoCategories indicates the valid category list is empty.
	ErrNoCategories = errors.New("no valid categories configured")
	// ErrInvalidCategory indicates a name that is not part of the valid set.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrDuplicateCategory indicates two distinct names that sanitize to one label.
	ErrDuplicateCategory = errors.New("duplicate category label")
	// ErrIncompleteResponse indicates a response entry missing its name or template.
	ErrIncompleteResponse = errors.New("response category requires name and response")
)
