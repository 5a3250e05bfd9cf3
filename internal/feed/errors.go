package feed

import "fmt"

// UnavailableError indicates the feed endpoint could not be reached or
// answered with a non-200 status. Retryable by the caller; the client
// never retries internally.
type UnavailableError struct {
	Err        error
	URL        string
	StatusCode int
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feed unavailable: %v", e.Err)
	}
	return fmt.Sprintf("feed unavailable: %s returned status %d", e.URL, e.StatusCode)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// FormatError indicates the feed body could not be parsed. Fatal for
// the run; not retryable.
type FormatError struct {
	Err error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("feed format invalid: %v", e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// MalformedRecordError indicates a single feed record is missing a
// required attribute. Under the all-or-nothing batch policy this aborts
// the whole synchronization run.
type MalformedRecordError struct {
	Key string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed feed record: missing required key %q", e.Key)
}
