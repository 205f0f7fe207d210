package crawler

import "errors"

var (
	// ErrFetchFailed is returned when a page cannot be retrieved
	ErrFetchFailed = errors.New("fetch failed")
	// ErrNotHTML is returned when a response is not an HTML document
	ErrNotHTML = errors.New("response is not HTML")
	// ErrEmptyContent is returned when a response has no body
	ErrEmptyContent = errors.New("response has no content")
)
