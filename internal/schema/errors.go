package schema

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every failure returned by the engine wraps exactly one of
// these, so callers can branch with errors.Is.
var (
	// ErrUnsupportedFormat: the source suffix is not .csv, .xml or .json.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrMalformedSource: the source cannot be opened or parsed, or has no header.
	ErrMalformedSource = errors.New("malformed source")
	// ErrInvalidInput: no sources were supplied.
	ErrInvalidInput = errors.New("invalid input")
)

// SourceError attributes a failure to one source.
//
// The message carries the locator, the detected format (when known) and the
// failing step, e.g.
//
//	extract reports/q1.xml (xml): malformed source: XML syntax error on line 4: ...
type SourceError struct {
	Path   string
	Format string
	Op     string
	Err    error
}

func (e *SourceError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Path, e.Format, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Malformed wraps err as ErrMalformedSource with a short context string.
// A nil err yields a bare ErrMalformedSource carrying the context.
func Malformed(context string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrMalformedSource, context)
	}
	return fmt.Errorf("%w: %s: %w", ErrMalformedSource, context, err)
}
