package server

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldIgnoreWatchPath(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"/repo/.git/index.lock":           true,
		"/repo/.git/refs/heads/main.LOCK": true,
		"/repo/.git/fsmonitor.ipc":        true,
		"/repo/.git/HEAD":                 false,
		"/repo/.git/refs/heads/main":      false,
	}
	for name, want := range tests {
		assert.Equal(t, want, shouldIgnoreWatchPath(name), name)
	}
}

func TestWatchPaths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	assert.Equal(t, []string{root}, slices.Collect(watchPaths(root)))

	gitDir := filepath.Join(root, ".git")
	refsDir := filepath.Join(gitDir, "refs")
	require.NoError(t, os.MkdirAll(filepath.Join(refsDir, "heads", "feature"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(refsDir, "remotes", "origin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(refsDir, "heads", "main"), nil, 0o644))
	got := slices.Sorted(watchPaths(root))
	assert.Equal(t, []string{
		gitDir,
		refsDir,
		filepath.Join(refsDir, "heads"),
		filepath.Join(refsDir, "heads", "feature"),
		filepath.Join(refsDir, "remotes"),
		filepath.Join(refsDir, "remotes", "origin"),
	}, got)

	assert.Empty(t, slices.Collect(watchPaths("")))
}

func TestWatcherTriggersOnChange(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	gitDir := filepath.Join(root, ".git")
	require.NoError(t, os.MkdirAll(gitDir, 0o755))

	changed := make(chan struct{}, 1)
	w := NewWatcher(root, 10*time.Millisecond, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	require.NoError(t, w.Start())
	defer func() { assert.NoError(t, w.Close()) }()

	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644))
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a debounced change notification")
	}
}

func TestIsRefsPath(t *testing.T) {
	t.Parallel()

	root := filepath.FromSlash("/repo")
	tests := map[string]bool{
		"/repo/.git/refs":                true,
		"/repo/.git/refs/heads/feature":  true,
		"/repo/.git/logs/refs/heads":     false,
		"/repo/.git/refsx":               false,
		"/elsewhere/.git/refs/heads/dev": false,
	}
	for path, want := range tests {
		assert.Equal(t, want, isRefsPath(root, filepath.FromSlash(path)), path)
	}
}

// notifier returns a change callback and the channel it signals.
func notifier() (func(), chan struct{}) {
	changed := make(chan struct{}, 1)
	return func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, changed
}

func waitChange(t *testing.T, changed <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected a change notification after %s", what)
	}
	// Let trailing events of the same change settle, then forget them.
	time.Sleep(50 * time.Millisecond)
	select {
	case <-changed:
	default:
	}
}

func TestWatcherSeesNestedRefs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	origin := filepath.Join(root, ".git", "refs", "remotes", "origin")
	require.NoError(t, os.MkdirAll(origin, 0o755))
	heads := filepath.Join(root, ".git", "refs", "heads")
	require.NoError(t, os.MkdirAll(heads, 0o755))

	onChange, changed := notifier()
	w := NewWatcher(root, 10*time.Millisecond, onChange)
	require.NoError(t, w.Start())
	defer func() { assert.NoError(t, w.Close()) }()

	require.NoError(t, os.WriteFile(filepath.Join(origin, "main"), []byte("0123\n"), 0o644))
	waitChange(t, changed, "a fetch updated refs/remotes/origin/main")

	// A branch namespace created while running is picked up too.
	feature := filepath.Join(heads, "feature")
	require.NoError(t, os.Mkdir(feature, 0o755))
	waitChange(t, changed, "creating refs/heads/feature")
	require.NoError(t, os.WriteFile(filepath.Join(feature, "x"), []byte("0123\n"), 0o644))
	waitChange(t, changed, "writing refs/heads/feature/x")
}
