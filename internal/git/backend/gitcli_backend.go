package backend

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/thiagokokada/gitlanes/internal/refs"
)

func (g *gitCLI) HeadState(ctx context.Context) (refs.Head, error) {
	if g == nil || g.path == "" {
		return refs.Head{}, fmt.Errorf("repository root not set")
	}
	out, err := g.runGitCommand(ctx, []string{"rev-parse", "-q", "--verify", "HEAD"}, true, "git rev-parse")
	if err != nil {
		return refs.Head{}, err
	}
	hash := strings.TrimSpace(out)
	if hash == "" {
		// unborn branch
		return refs.Head{}, nil
	}
	ref, err := g.runGitCommand(ctx, []string{"symbolic-ref", "-q", "--short", "HEAD"}, true, "git symbolic-ref")
	if err != nil {
		return refs.Head{}, err
	}
	return refs.Head{Hash: hash, Branch: strings.TrimSpace(ref)}, nil
}

func (g *gitCLI) HasMergeHead(ctx context.Context) (bool, error) {
	out, err := g.runGitCommand(ctx, []string{"rev-parse", "-q", "--verify", "MERGE_HEAD"}, true, "git rev-parse")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func (g *gitCLI) ListRefs(ctx context.Context) ([]refs.Ref, error) {
	if g == nil || g.path == "" {
		return nil, nil
	}
	out, err := g.runGitCommand(
		ctx,
		[]string{
			"--no-pager",
			"show-ref",
			"--dereference",
		},
		true,
		"git show-ref",
	)
	if err != nil {
		return nil, err
	}
	return parseRefsFromShowRef(out)
}

func (g *gitCLI) SubmodulePointer(ctx context.Context, rev, subPath string) (string, bool, error) {
	dir, name := path.Split(filepath.ToSlash(subPath))
	dir = strings.TrimSuffix(dir, "/")
	out, err := g.runGitCommand(ctx, []string{"ls-tree", "-z", rev + ":" + dir}, false, "git ls-tree")
	if err != nil {
		return "", false, err
	}
	hash, ok, err := parseLsTreeCommit(out, name)
	if err != nil {
		return "", false, fmt.Errorf("parse git ls-tree: %w", err)
	}
	return hash, ok, nil
}

func (g *gitCLI) Submodules(ctx context.Context) ([]Submodule, error) {
	gitmodules := filepath.Join(g.path, ".gitmodules")
	if _, err := os.Stat(gitmodules); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	out, err := g.runGitCommand(
		ctx,
		[]string{"config", "--file", gitmodules, "--get-regexp", `^submodule\..*\.path$`},
		true,
		"git config",
	)
	if err != nil {
		return nil, err
	}
	return parseSubmodulePaths(out), nil
}

func parseRefsFromShowRef(out string) ([]refs.Ref, error) {
	type refEntry struct {
		hash string
		ref  string
	}

	peeledByTagRef := map[string]string{}
	var entries []refEntry

	for _, rawLine := range strings.Split(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("unexpected show-ref output line: %q", rawLine)
		}
		hash := strings.TrimSpace(parts[0])
		refName := strings.TrimSpace(parts[1])
		if hash == "" || refName == "" {
			return nil, fmt.Errorf("unexpected show-ref output line: %q", rawLine)
		}
		if base, ok := strings.CutSuffix(refName, "^{}"); ok {
			if base != "" {
				peeledByTagRef[base] = hash
			}
			continue
		}
		entries = append(entries, refEntry{hash: hash, ref: refName})
	}

	var parsed []refs.Ref
	for _, entry := range entries {
		ref, ok := refFromFullName(entry.ref, entry.hash)
		if !ok {
			continue
		}
		if ref.Kind == refs.KindTag {
			if peeled, ok := peeledByTagRef[entry.ref]; ok && peeled != "" {
				ref.Hash = peeled
			}
		}
		parsed = append(parsed, ref)
	}
	return parsed, nil
}

// refFromFullName classifies a refs/... name. Anything outside heads, remotes
// and tags is rejected, as are symbolic remote HEADs such as origin/HEAD.
func refFromFullName(name, hash string) (refs.Ref, bool) {
	for _, c := range []struct {
		prefix string
		kind   refs.Kind
	}{
		{"refs/heads/", refs.KindBranch},
		{"refs/remotes/", refs.KindRemoteBranch},
		{"refs/tags/", refs.KindTag},
	} {
		if short, ok := strings.CutPrefix(name, c.prefix); ok {
			if short == "" || (c.kind == refs.KindRemoteBranch && strings.HasSuffix(short, "/HEAD")) {
				return refs.Ref{}, false
			}
			return refs.Ref{Hash: hash, Kind: c.kind, Name: short}, true
		}
	}
	return refs.Ref{}, false
}

// parseLsTreeCommit finds the gitlink entry called name in NUL-separated
// ls-tree output.
func parseLsTreeCommit(out, name string) (string, bool, error) {
	for entry := range strings.SplitSeq(out, "\x00") {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		meta, filename, ok := strings.Cut(entry, "\t")
		if !ok {
			return "", false, fmt.Errorf("unexpected ls-tree entry: %q", entry)
		}
		if filename != name {
			continue
		}
		fields := strings.Fields(meta)
		if len(fields) != 3 {
			return "", false, fmt.Errorf("unexpected ls-tree entry: %q", entry)
		}
		if fields[1] == "commit" {
			return fields[2], true, nil
		}
	}
	return "", false, nil
}

func parseSubmodulePaths(out string) []Submodule {
	var subs []Submodule
	for line := range strings.SplitSeq(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), " ")
		if !ok {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(key, "submodule."), ".path")
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		subs = append(subs, Submodule{Name: name, Path: value})
	}
	return subs
}
