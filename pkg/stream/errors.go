package stream

import "errors"

// Common errors returned by the stream package.
var (
	// ErrFileNotFound is returned when the followed file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrSourceGone is returned when the followed file was removed or
	// replaced.
	ErrSourceGone = errors.New("source removed or replaced")

	// ErrTruncated is returned when the followed file shrank below the
	// read offset.
	ErrTruncated = errors.New("file was truncated")

	// ErrStreamClosed is returned by a source reader after Close.
	ErrStreamClosed = errors.New("stream closed")
)
