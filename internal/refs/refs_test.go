package refs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	commit1 = "1111111111111111111111111111111111111111"
	commit2 = "2222222222222222222222222222222222222222"
	commit3 = "3333333333333333333333333333333333333333"
)

func testIndex() *Index {
	return NewIndex(Snapshot{
		Refs: []Ref{
			{Hash: commit1, Kind: KindBranch, Name: "main"},
			{Hash: commit1, Kind: KindRemoteBranch, Name: "origin/main"},
			{Hash: commit1, Kind: KindRemoteBranch, Name: "origin/HEAD"},
			{Hash: commit2, Kind: KindBranch, Name: "feature/x"},
			{Hash: commit3, Kind: KindTag, Name: "v1.0"},
			{Hash: "", Kind: KindTag, Name: "broken"},
		},
		Head: Head{Hash: commit1, Branch: "main"},
	})
}

func TestResolve(t *testing.T) {
	t.Parallel()

	ix := testIndex()
	tests := []struct {
		name string
		want string
	}{
		{name: "HEAD", want: commit1},
		{name: "refs/heads/main", want: commit1},
		{name: "main", want: commit1},
		{name: "refs/remotes/origin/main", want: commit1},
		{name: "origin/main", want: commit1},
		{name: "feature/x", want: commit2},
		{name: "refs/tags/v1.0", want: commit3},
		{name: "v1.0", want: commit3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ix.Resolve(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUnknown(t *testing.T) {
	t.Parallel()

	ix := testIndex()
	for _, name := range []string{"nope", "refs/heads/v1.0", "refs/tags/main", "broken"} {
		_, err := ix.Resolve(name)
		var unknown *UnknownReferenceError
		require.ErrorAs(t, err, &unknown, name)
		assert.Equal(t, name, unknown.Name)
		assert.True(t, errors.Is(err, ErrUnknownReference))
	}

	empty := NewIndex(Snapshot{})
	_, err := empty.Resolve(HEAD)
	assert.ErrorIs(t, err, ErrUnknownReference)
}

func TestLookupFullName(t *testing.T) {
	t.Parallel()

	ix := testIndex()
	for name, want := range map[string]string{
		"HEAD":            HEAD,
		"main":            "refs/heads/main",
		"refs/heads/main": "refs/heads/main",
		"origin/main":     "refs/remotes/origin/main",
		"v1.0":            "refs/tags/v1.0",
	} {
		full, hash, err := ix.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, full, name)
		assert.NotEmpty(t, hash, name)
	}
}

func TestNamesAt(t *testing.T) {
	t.Parallel()

	ix := testIndex()
	assert.Equal(t, []string{
		"refs/heads/main",
		"refs/remotes/origin/HEAD",
		"refs/remotes/origin/main",
	}, ix.NamesAt(commit1))
	assert.Equal(t, []string{"refs/heads/feature/x"}, ix.NamesAt(commit2))
	assert.Empty(t, ix.NamesAt("ffff"))
	assert.True(t, ix.HasNames(commit3))
	assert.False(t, ix.HasNames("ffff"))
}

func TestTargets(t *testing.T) {
	t.Parallel()

	ix := NewIndex(Snapshot{
		Refs: []Ref{{Hash: commit2, Kind: KindBranch, Name: "main"}},
		Head: Head{Hash: commit3},
	})
	assert.Equal(t, []string{commit2, commit3}, ix.Targets())
}

func TestIndexIsCopied(t *testing.T) {
	t.Parallel()

	in := []Ref{{Hash: commit1, Kind: KindBranch, Name: "main"}}
	ix := NewIndex(Snapshot{Refs: in})
	in[0].Hash = commit2

	got, err := ix.Resolve("main")
	require.NoError(t, err)
	assert.Equal(t, commit1, got)

	snap := ix.Snapshot()
	snap.Refs[0].Hash = commit3
	assert.Equal(t, commit1, ix.Snapshot().Refs[0].Hash)
}

func TestRefFullName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "refs/heads/main", Ref{Kind: KindBranch, Name: "main"}.FullName())
	assert.Equal(t, "refs/remotes/origin/main", Ref{Kind: KindRemoteBranch, Name: "origin/main"}.FullName())
	assert.Equal(t, "refs/tags/v1", Ref{Kind: KindTag, Name: "v1"}.FullName())
}
