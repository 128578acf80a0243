package pdffigures

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoCaptionsFound is reported when no caption matches the grammar anywhere in the document.
	ErrNoCaptionsFound = errors.New("no figure or table captions found")

	// ErrRegionTooSmall is reported when a resolved (or fallback) region yields no usable image.
	ErrRegionTooSmall = errors.New("region too small")

	// ErrDuplicateLabel is reported when a label has already been extracted earlier in the run.
	ErrDuplicateLabel = errors.New("label already extracted")
)

// AccessError is a failure of the underlying PDF library. It aborts the run.
type AccessError struct {
	Op   string
	Page int // 0-indexed, -1 when not page specific
	Err  error
}

func (e *AccessError) Error() string {
	if e.Page < 0 {
		return fmt.Sprintf("pdf access: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("pdf access: %s (page %d): %v", e.Op, e.Page+1, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// Cause supports errors.Cause from github.com/pkg/errors.
func (e *AccessError) Cause() error { return e.Err }

func accessError(op string, page int, err error) error {
	return &AccessError{Op: op, Page: page, Err: err}
}

// IsAccessError reports whether err was caused by the underlying PDF library.
func IsAccessError(err error) bool {
	var ae *AccessError
	return errors.As(err, &ae)
}
