package sandbox

import (
	"context"
	"testing"
	"time"
)

func TestNoopBackend_RunsCommand(t *testing.T) {
	b := NewNoopBackend(nil)
	res, err := b.Execute(context.Background(), []string{"echo", "hello"}, t.TempDir(), DefaultPolicy(), 5*time.Second, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d (stderr=%q)", res.ExitCode, res.Stderr)
	}
	if res.SandboxType != TypeNone {
		t.Fatalf("expected sandbox type none, got %q", res.SandboxType)
	}
}

func TestNoopBackend_CommandNotFound(t *testing.T) {
	b := NewNoopBackend(nil)
	res, err := b.Execute(context.Background(), []string{"definitely-not-a-real-binary-xyz"}, t.TempDir(), DefaultPolicy(), 5*time.Second, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 127 {
		t.Fatalf("expected exit code 127 for missing binary, got %d", res.ExitCode)
	}
}

func TestNoopBackend_Timeout(t *testing.T) {
	b := NewNoopBackend(nil)
	res, err := b.Execute(context.Background(), []string{"sleep", "5"}, t.TempDir(), DefaultPolicy(), 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != -1 {
		t.Fatalf("expected exit code -1 on timeout, got %d", res.ExitCode)
	}
}
