package fault

import "errors"

// Error marks unexpected internal failures that must abort alert ingestion.
// Params: wrapped root cause.
// Returns: typed internal failure marker.
type Error struct {
	Err error
}

// Error returns wrapped error message.
// Params: none.
// Returns: string representation.
func (e Error) Error() string {
	if e.Err == nil {
		return "internal failure"
	}
	return e.Err.Error()
}

// Unwrap exposes wrapped cause for errors.Is/errors.As.
// Params: none.
// Returns: wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// Internal reports the marker for errors.As lookups.
func (Error) Internal() bool {
	return true
}

// Internal wraps error with internal failure marker.
// Params: source error.
// Returns: wrapped error or nil.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	return Error{Err: err}
}

// IsInternal reports whether error carries internal failure marker.
// Params: candidate error.
// Returns: true when failure must abort ingestion rather than count as a channel failure.
func IsInternal(err error) bool {
	if err == nil {
		return false
	}
	type marker interface {
		Internal() bool
	}
	var tagged marker
	if !errors.As(err, &tagged) {
		return false
	}
	return tagged.Internal()
}
