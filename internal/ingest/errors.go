package ingest

import (
	"errors"
	"fmt"
)

// ErrUnknownAgency is returned when an agency does not exist or is disabled.
var ErrUnknownAgency = errors.New("unknown or disabled agency")

// ErrInvalidInput is returned for malformed identifiers, timestamps, or
// enum values, always before any side effect.
var ErrInvalidInput = errors.New("invalid input")

// UpstreamError reports a non-2xx response from a feed source. It is a
// whole-request failure on the static path and a per-feed outcome on the
// realtime path; it is never retried by the core.
type UpstreamError struct {
	URL    string
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream fetch failed: HTTP %d from %s", e.Status, e.URL)
}
