package git

import (
	"context"
	"errors"
	"io"

	"github.com/thiagokokada/gitlanes/internal/commitstore"
	gitbackend "github.com/thiagokokada/gitlanes/internal/git/backend"
	"github.com/thiagokokada/gitlanes/internal/refs"
)

type fakeBackend struct {
	repoPath string

	logFunc              func(args []string) ([]commitstore.Record, error)
	listRefsFunc         func() ([]refs.Ref, error)
	headStateFunc        func() (refs.Head, error)
	submodulePointerFunc func(rev, path string) (string, bool, error)
	hasMergeHeadFunc     func() (bool, error)
	submodulesFunc       func() ([]gitbackend.Submodule, error)

	logCalls int
	lastArgs []string
}

func (f *fakeBackend) RepoPath() string { return f.repoPath }

func (f *fakeBackend) Log(_ context.Context, args []string) (gitbackend.LogStream, error) {
	f.logCalls++
	f.lastArgs = args
	if f.logFunc == nil {
		return nil, errors.New("unexpected Log call")
	}
	records, err := f.logFunc(args)
	if err != nil {
		return nil, err
	}
	return &fakeLogStream{records: records}, nil
}

func (f *fakeBackend) ListRefs(context.Context) ([]refs.Ref, error) {
	if f.listRefsFunc != nil {
		return f.listRefsFunc()
	}
	return nil, nil
}

func (f *fakeBackend) HeadState(context.Context) (refs.Head, error) {
	if f.headStateFunc != nil {
		return f.headStateFunc()
	}
	return refs.Head{}, nil
}

func (f *fakeBackend) SubmodulePointer(_ context.Context, rev, path string) (string, bool, error) {
	if f.submodulePointerFunc != nil {
		return f.submodulePointerFunc(rev, path)
	}
	return "", false, errors.New("unexpected SubmodulePointer call")
}

func (f *fakeBackend) HasMergeHead(context.Context) (bool, error) {
	if f.hasMergeHeadFunc != nil {
		return f.hasMergeHeadFunc()
	}
	return false, nil
}

func (f *fakeBackend) Submodules(context.Context) ([]gitbackend.Submodule, error) {
	if f.submodulesFunc != nil {
		return f.submodulesFunc()
	}
	return nil, nil
}

type fakeLogStream struct {
	records []commitstore.Record
	pos     int
	closed  bool
}

func (s *fakeLogStream) Next() (*commitstore.Record, error) {
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return &rec, nil
}

func (s *fakeLogStream) Close() error {
	s.closed = true
	return nil
}

// openerFor serves the fakes registered by repository path.
func openerFor(backends map[string]*fakeBackend) func(context.Context, gitbackend.Kind, string) (gitbackend.Backend, error) {
	return func(_ context.Context, _ gitbackend.Kind, path string) (gitbackend.Backend, error) {
		be, ok := backends[path]
		if !ok {
			return nil, errors.New("not a git repository: " + path)
		}
		return be, nil
	}
}
