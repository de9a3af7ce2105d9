package backend

import (
	"context"
	"io"

	"github.com/thiagokokada/gitlanes/internal/commitstore"
	"github.com/thiagokokada/gitlanes/internal/refs"
)

// Backend executes the version-control queries a session needs.
//
// The default implementation shells out to the git executable; the native
// implementation reads the repository with go-git. Callers only see this
// interface.
type Backend interface {
	RepoPath() string

	// Log streams the commits selected by args (git log selectors such as
	// --all or revisions), newest first with children before parents.
	Log(ctx context.Context, args []string) (LogStream, error)
	ListRefs(ctx context.Context) ([]refs.Ref, error)
	HeadState(ctx context.Context) (refs.Head, error)

	// SubmodulePointer returns the commit recorded for the submodule at path
	// in revision rev, and false when rev has no submodule entry there.
	SubmodulePointer(ctx context.Context, rev, path string) (string, bool, error)
	HasMergeHead(ctx context.Context) (bool, error)
	Submodules(ctx context.Context) ([]Submodule, error)
}

type LogStream interface {
	Next() (*commitstore.Record, error)
	Close() error
}

// Submodule is one entry of .gitmodules. Path is relative to the repository
// root.
type Submodule struct {
	Name string
	Path string
}

// Kind selects a Backend implementation.
type Kind string

const (
	KindGitCLI Kind = "gitcli"
	KindNative Kind = "native"
)

// Open opens repoPath with the backend of the given kind.
func Open(ctx context.Context, kind Kind, repoPath string) (Backend, error) {
	switch kind {
	case KindNative:
		return OpenNative(ctx, repoPath)
	default:
		return OpenCLI(ctx, repoPath)
	}
}

// ReadAll drains a stream, closing it.
func ReadAll(stream LogStream) (records []commitstore.Record, err error) {
	defer func() {
		if cerr := stream.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for {
		rec, err := stream.Next()
		if err != nil {
			if err == io.EOF {
				return records, nil
			}
			return nil, err
		}
		records = append(records, *rec)
	}
}

func abbrev(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
