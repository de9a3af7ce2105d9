package backend

import (
	"strings"
	"testing"
)

func TestParseGitVersionOutput(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   string
		want gitVersion
		ok   bool
	}{
		"release":        {in: "git version 2.47.1\n", want: gitVersion{2, 47, 1}, ok: true},
		"apple":          {in: "git version 2.39.5 (Apple Git-154)", want: gitVersion{2, 39, 5}, ok: true},
		"windows build":  {in: "git version 2.46.0.windows.1", want: gitVersion{2, 46, 0}, ok: true},
		"vfs build":      {in: "git version 2.45.2.vfs.0.0", want: gitVersion{2, 45, 2}, ok: true},
		"rc":             {in: "git version 2.48.0-rc1", want: gitVersion{2, 48, 0}, ok: true},
		"two components": {in: "git version 2.30", want: gitVersion{2, 30, 0}, ok: true},
		"bare number":    {in: "  2.40.0  ", want: gitVersion{2, 40, 0}, ok: true},
		"major only":     {in: "git version 3", ok: false},
		"garbage":        {in: "command not found", ok: false},
		"blank":          {in: "\n", ok: false},
	}
	for name, tt := range tests {
		got, ok := parseGitVersionOutput(tt.in)
		if ok != tt.ok {
			t.Fatalf("%s: ok = %v, want %v (got %s)", name, ok, tt.ok, got)
		}
		if ok && got != tt.want {
			t.Fatalf("%s: got %s, want %s", name, got, tt.want)
		}
	}
}

func TestGitVersionOrdering(t *testing.T) {
	t.Parallel()

	ordered := []gitVersion{{1, 9, 9}, {2, 0, 0}, {2, 22, 5}, {2, 23, 0}, {2, 23, 1}, {2, 100, 0}}
	for i := 1; i < len(ordered); i++ {
		if !ordered[i-1].less(ordered[i]) || ordered[i].less(ordered[i-1]) {
			t.Fatalf("expected %s < %s", ordered[i-1], ordered[i])
		}
	}
	if minGitVersion.less(minGitVersion) {
		t.Fatalf("a version is not less than itself")
	}
}

func TestValidateGitVersionOutput(t *testing.T) {
	t.Parallel()

	if err := validateGitVersionOutput("git version " + MinGitVersion()); err != nil {
		t.Fatalf("minimum version rejected: %v", err)
	}
	err := validateGitVersionOutput("git version 2.20.1")
	if err == nil || !strings.Contains(err.Error(), "requires git >= "+MinGitVersion()) {
		t.Fatalf("expected a too-old error, got %v", err)
	}
	err = validateGitVersionOutput("not git")
	if err == nil || !strings.Contains(err.Error(), "unable to parse") {
		t.Fatalf("expected a parse error, got %v", err)
	}
}
