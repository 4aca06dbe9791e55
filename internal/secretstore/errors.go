// internal/secretstore/errors.go
//
// Error taxonomy shared by every backend.
//
// Backends translate their native failures into the three sentinels below
// and wrap them with the group name, so callers branch with errors.Is and
// still see which group failed in logs.  Anything a backend cannot map is
// returned unchanged and classifies as KindUnrecoverable.

package secretstore

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the store has no group under the requested name.
	ErrNotFound = errors.New("secret group not found")

	// ErrAccessDenied means the caller lacks permission to read the group.
	ErrAccessDenied = errors.New("access denied to secret group")

	// ErrUnsupportedFormat means the stored payload is not a JSON object
	// with string keys (binary secrets included).
	ErrUnsupportedFormat = errors.New("unsupported secret group format")

	// ErrKeyNotFound is returned by Lookup when the group exists but has no
	// such key.
	ErrKeyNotFound = errors.New("key not found in secret group")
)

// Kind is the coarse classification of a store error.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindAccessDenied
	KindUnsupportedFormat
	KindUnrecoverable
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindUnsupportedFormat:
		return "unsupported_format"
	default:
		return "unrecoverable"
	}
}

// Classify maps err onto a Kind.  A nil error is KindNone.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrAccessDenied):
		return KindAccessDenied
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	default:
		return KindUnrecoverable
	}
}

func groupErr(sentinel error, group string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", sentinel, group)
	}
	return fmt.Errorf("%w: %s: %w", sentinel, group, cause)
}

// ErrReadOnly is returned by PutRaw and PutGroup when the backend cannot
// write.
var ErrReadOnly = errors.New("secret backend is read-only")

func errReadOnly(backend string) error {
	return fmt.Errorf("%w: %s", ErrReadOnly, backend)
}
