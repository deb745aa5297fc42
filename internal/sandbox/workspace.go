package sandbox

import (
	"os"
	"path/filepath"
	"strings"
)

// protectedNames are sub-paths auto-detected and marked read-only within an
// otherwise-writable root (§4.5): version-control metadata and a
// tool-internal config directory.
var protectedNames = []string{".git", ".agentcore"}

// ResolvedRoot is one writable root with its auto-detected protected
// sub-paths, ready for a backend's policy-assembly step.
type ResolvedRoot struct {
	Path      string
	Protected []string
}

// ResolveWritableRoots canonicalises and deduplicates policy.WritableRoots,
// augmented with cwd and (if enabled) temp directories, then auto-detects
// protected sub-paths within each (§4.5 "Writable-root computation").
func ResolveWritableRoots(policy Policy, cwd string) []ResolvedRoot {
	seen := make(map[string]struct{})
	var roots []string

	add := func(p string) {
		if p == "" {
			return
		}
		real, err := filepath.EvalSymlinks(p)
		if err != nil {
			real = p
		}
		abs, err := filepath.Abs(real)
		if err != nil {
			abs = real
		}
		abs = filepath.Clean(abs)
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		roots = append(roots, abs)
	}

	for _, r := range policy.WritableRoots {
		add(r)
	}
	add(cwd)
	if policy.IncludeTmp {
		add("/tmp")
	}
	if policy.IncludeTmpDir {
		add(os.Getenv("TMPDIR"))
	}

	resolved := make([]ResolvedRoot, 0, len(roots))
	for _, root := range roots {
		resolved = append(resolved, ResolvedRoot{Path: root, Protected: protectedSubPaths(root)})
	}
	return resolved
}

// protectedSubPaths finds version-control metadata and tool-config
// directories directly under root. A ".git" file (rather than directory)
// indicates a linked worktree; its gitdir: pointer is resolved so the real
// git directory is protected too (§C "Worktree-pointer git-dir resolution").
func protectedSubPaths(root string) []string {
	var protected []string
	for _, name := range protectedNames {
		candidate := filepath.Join(root, name)
		info, err := os.Lstat(candidate)
		if err != nil {
			continue
		}
		if info.IsDir() {
			protected = append(protected, candidate)
			continue
		}
		if name == ".git" {
			if gitdir, ok := parseGitdirPointer(candidate); ok {
				protected = append(protected, candidate, gitdir)
			}
		}
	}
	return protected
}

// parseGitdirPointer reads a worktree ".git" file's "gitdir: <path>" line
// and resolves it relative to the file's directory when not absolute.
func parseGitdirPointer(path string) (string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	content := strings.TrimSpace(string(data))
	const prefix = "gitdir:"
	if !strings.HasPrefix(content, prefix) {
		return "", false
	}
	target := strings.TrimSpace(strings.TrimPrefix(content, prefix))
	if target == "" {
		return "", false
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return filepath.Clean(target), true
}
