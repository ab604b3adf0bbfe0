package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireWritesOwner(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer lock.Release()

	owner, err := ReadOwner(lock.Path())
	if err != nil {
		t.Fatalf("ReadOwner failed: %v", err)
	}
	if owner.PID != os.Getpid() {
		t.Errorf("expected pid %d, got %d", os.Getpid(), owner.PID)
	}
	if owner.Started.IsZero() {
		t.Error("expected start time to be recorded")
	}
}

func TestAcquireConflict(t *testing.T) {
	dir := t.TempDir()
	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer lock.Release()

	// flock locks are per open file description, so a second open conflicts
	_, err = Acquire(dir)
	if err == nil {
		t.Fatal("expected second Acquire to fail")
	}
	if !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked, got %v", err)
	}
	var lockErr *LockError
	if !errors.As(err, &lockErr) || lockErr.Owner.PID != os.Getpid() {
		t.Errorf("expected LockError naming this process, got %v", err)
	}
}

func TestReleaseAllowsReacquire(t *testing.T) {
	dir := t.TempDir()
	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release should be a no-op, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); !os.IsNotExist(err) {
		t.Error("expected lock file to be removed")
	}

	again, err := Acquire(dir)
	if err != nil {
		t.Fatalf("reacquire failed: %v", err)
	}
	again.Release()
}
