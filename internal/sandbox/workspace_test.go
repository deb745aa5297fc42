package sandbox

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveWritableRoots_DeduplicatesAndIncludesCwd(t *testing.T) {
	dir := t.TempDir()
	policy := Policy{Level: LevelWorkspace, WritableRoots: []string{dir}}

	roots := ResolveWritableRoots(policy, dir)
	if len(roots) != 1 {
		t.Fatalf("expected explicit root and cwd to dedupe to 1, got %d: %+v", len(roots), roots)
	}
}

func TestResolveWritableRoots_DetectsGitDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, ".git"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	roots := ResolveWritableRoots(Policy{Level: LevelWorkspace}, dir)
	if len(roots) != 1 {
		t.Fatalf("expected 1 root, got %d", len(roots))
	}
	if len(roots[0].Protected) != 1 {
		t.Fatalf("expected .git to be auto-protected, got %+v", roots[0].Protected)
	}
}

func TestResolveWritableRoots_ResolvesWorktreeGitdirPointer(t *testing.T) {
	mainRepo := t.TempDir()
	gitdir := filepath.Join(mainRepo, "worktrees", "feature")
	if err := os.MkdirAll(gitdir, 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	worktree := t.TempDir()
	pointer := "gitdir: " + gitdir + "\n"
	if err := os.WriteFile(filepath.Join(worktree, ".git"), []byte(pointer), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	roots := ResolveWritableRoots(Policy{Level: LevelWorkspace}, worktree)
	if len(roots) != 1 {
		t.Fatalf("expected 1 root, got %d", len(roots))
	}
	found := false
	for _, p := range roots[0].Protected {
		if p == filepath.Clean(gitdir) {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected resolved gitdir to be protected, got %+v", roots[0].Protected)
	}
}

func TestPolicy_Levels(t *testing.T) {
	if !(Policy{Level: LevelNone}).Unrestricted() {
		t.Fatalf("expected LevelNone to be unrestricted")
	}
	if (Policy{Level: LevelWorkspace}).Unrestricted() {
		t.Fatalf("expected LevelWorkspace to be restricted")
	}
	if (Policy{Level: LevelReadOnly}).AllowsWrites() {
		t.Fatalf("expected read_only to disallow general writes")
	}
	if !(Policy{Level: LevelWorkspace}).AllowsWrites() {
		t.Fatalf("expected workspace level to allow writes")
	}
}
