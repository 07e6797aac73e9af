package client

import (
	"errors"
	"fmt"

	"github.com/famomatic/clipget/internal/backend"
)

var (
	// ErrInvalidInput indicates a malformed address or option value.
	ErrInvalidInput = errors.New("invalid input")
	// ErrToolMissing indicates a required external binary (yt-dlp, ffmpeg)
	// is not installed. Segment operations report it before any work
	// begins.
	ErrToolMissing = backend.ErrToolMissing
	// ErrNoFormats indicates no usable formats were found.
	ErrNoFormats = errors.New("no usable formats")
	// ErrNoSubtitles indicates no caption track matched the requested
	// languages.
	ErrNoSubtitles = errors.New("no matching subtitles")
)

// ExtractionError wraps a metadata extraction failure: page fetch, embedded
// JSON location, parse, or missing required fields.
type ExtractionError struct {
	Address string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.Address, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// DownloadError wraps a retrieval or post-processing failure: exhausted
// backends, subprocess exit, missing tools, cut or trim failures.
type DownloadError struct {
	Op  string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// ValidationError reports a malformed argument before any I/O happens. Index
// is the offending position for batch inputs, -1 otherwise.
type ValidationError struct {
	Field  string
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("invalid %s[%d]: %s", e.Field, e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
