// Package fetch retrieves submission code from GitHub and shapes it into
// the CodeContext the review pipeline consumes.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/bountylab/reviewd/internal/models"
)

// Fetcher retrieves the code under review for a submission URL.
type Fetcher interface {
	RepositoryData(ctx context.Context, url string) (models.CodeContext, error)
	PRData(ctx context.Context, url string) (models.CodeContext, error)
}

// ErrorKind classifies fetch failures so callers can decide whether to
// retry, surface, or skip.
type ErrorKind string

const (
	ErrNotFound    ErrorKind = "not_found"
	ErrRateLimited ErrorKind = "rate_limited"
	ErrPrivate     ErrorKind = "private"
	ErrEmpty       ErrorKind = "empty"
	ErrNetwork     ErrorKind = "network"
)

// Error is a classified fetch failure.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch failed (%s): %s", e.Kind, e.Detail)
}

// KindOf returns the classification of err, or "" if err is not a fetch
// error.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
