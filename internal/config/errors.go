package config

import "errors"

var (
	// ErrNoBaseURL is returned when no base URL is provided
	ErrNoBaseURL = errors.New("no base URL provided")
	// ErrInvalidBaseURL is returned when the base URL is not absolute
	ErrInvalidBaseURL = errors.New("base URL must be an absolute http(s) URL")
	// ErrInvalidStartURL is returned when the start URL cannot be resolved
	ErrInvalidStartURL = errors.New("invalid start URL")
	// ErrEmptyOutput is returned when the output destination is empty
	ErrEmptyOutput = errors.New("output cannot be empty")
	// ErrInvalidDelay is returned when delay or delay range is negative
	ErrInvalidDelay = errors.New("delay and delay_range must not be negative")
	// ErrInvalidTimeout is returned when request timeout is not greater than 0
	ErrInvalidTimeout = errors.New("request_timeout must be greater than 0 and render_wait must not be negative")
	// ErrInvalidThreshold is returned when the similarity threshold is outside [0,1]
	ErrInvalidThreshold = errors.New("similarity_threshold must be between 0 and 1")
	// ErrInvalidMinBlockLength is returned when min_block_length is negative
	ErrInvalidMinBlockLength = errors.New("min_block_length must not be negative")
	// ErrInvalidSelector is returned when a remove selector does not compile
	ErrInvalidSelector = errors.New("invalid remove selector")
	// ErrConflictingHeaders is returned when both headers_file and headers_json are set
	ErrConflictingHeaders = errors.New("headers_file and headers_json are mutually exclusive")
	// ErrInvalidHeaders is returned when headers are not a JSON object of strings
	ErrInvalidHeaders = errors.New("headers must be a JSON object of strings")
)
