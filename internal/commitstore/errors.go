package commitstore

import (
	"errors"
	"fmt"
)

var (
	ErrDanglingParent = errors.New("dangling parent")
	ErrNotFound       = errors.New("commit not found")
	ErrAmbiguous      = errors.New("ambiguous commit prefix")
)

// DanglingParentError reports a record whose parent was not ingested before it.
// Callers must supply records oldest-first, so this is a contract violation.
type DanglingParentError struct {
	CommitID string
	ParentID string
}

func (e *DanglingParentError) Error() string {
	return fmt.Sprintf("commit %s: parent %s not ingested", e.CommitID, e.ParentID)
}

func (e *DanglingParentError) Is(target error) bool {
	return target == ErrDanglingParent
}

// NotFoundError reports a lookup of a commit outside the loaded history.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("commit %s not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AmbiguousPrefixError reports an abbreviated id matching several commits.
type AmbiguousPrefixError struct {
	Prefix  string
	Matches []string
}

func (e *AmbiguousPrefixError) Error() string {
	return fmt.Sprintf("commit prefix %s is ambiguous (%d matches)", e.Prefix, len(e.Matches))
}

func (e *AmbiguousPrefixError) Is(target error) bool {
	return target == ErrAmbiguous
}
