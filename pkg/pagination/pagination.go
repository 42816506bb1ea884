// Package pagination provides limit/offset paging over remote list endpoints.
package pagination

import (
	"net/url"
	"strconv"
)

// Page identifies one window of a limit/offset listing.
type Page struct {
	Limit  int
	Offset int
}

// First returns the first page for the configured page size.
func First(cfg Config) Page {
	return Page{Limit: cfg.PageSize, Offset: 0}
}

// Next returns the page immediately after p.
func (p Page) Next() Page {
	return Page{Limit: p.Limit, Offset: p.Offset + p.Limit}
}

// Keys names the query parameters a remote API uses for limit and offset.
type Keys struct {
	Limit  string
	Offset string
}

// JSONAPIKeys are the bracketed parameter names used by JSON:API services.
var JSONAPIKeys = Keys{Limit: "page[limit]", Offset: "page[offset]"}

// Apply returns a copy of values with the page parameters set under keys.
func (p Page) Apply(values url.Values, keys Keys) url.Values {
	out := make(url.Values, len(values)+2)
	for k, v := range values {
		out[k] = append([]string(nil), v...)
	}
	out.Set(keys.Limit, strconv.Itoa(p.Limit))
	out.Set(keys.Offset, strconv.Itoa(p.Offset))
	return out
}
