// Package fetch defines the artifact-fetch collaborator contract the
// dependency tracker assumes: resolving a blob-storage URL into a
// local file, with distinguishable not-found and access-denied
// failures and optional fractional progress reporting.
package fetch

import (
	"context"
	"fmt"
)

// Kind classifies a fetch failure.
type Kind int

const (
	// KindTransfer covers transport and provider failures that are
	// neither a missing object nor a permission problem.
	KindTransfer Kind = iota

	// KindNotFound means the provider reported the object missing.
	KindNotFound

	// KindAccessDenied means the provider refused access to the
	// object.
	KindAccessDenied
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindAccessDenied:
		return "access denied"
	default:
		return "transfer failed"
	}
}

// Error is a classified fetch failure for one URL.
type Error struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ProgressFunc receives fractional transfer progress in [0, 1] and a
// human-readable rate string, which may be empty.
type ProgressFunc func(fraction float64, rate string)

// Fetcher resolves remote object URLs into local files.
type Fetcher interface {
	// Fetch downloads the object at rawURL into dest.
	Fetch(ctx context.Context, rawURL, dest string) error

	// Probe reports whether the object at rawURL exists. A definitive
	// "does not exist" answer is (false, nil); permission and
	// transport failures are errors.
	Probe(ctx context.Context, rawURL string) (bool, error)
}
