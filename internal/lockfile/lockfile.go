// Package lockfile guards a PayFlow state directory against concurrent use.
//
// The lock is an flock on a file inside the directory, so the kernel releases
// it when the process exits however it exits.
package lockfile

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockFileName is the name of the lock file created in the state directory
const LockFileName = "payflow.lock"

// ErrLocked is wrapped by LockError when another process holds the lock.
var ErrLocked = errors.New("state directory is locked")

// Owner describes the process recorded in a lock file.
type Owner struct {
	PID     int
	Started time.Time
}

// Lock is a held state directory lock.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive, non-blocking lock on stateDir, creating the
// directory if needed.
func Acquire(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("create state directory %s: %w", stateDir, err)
	}
	path := filepath.Join(stateDir, LockFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		owner, _ := ReadOwner(path)
		slog.Error("lockfile.Acquire: state directory in use", "lock_path", path, "owner_pid", owner.PID)
		return nil, &LockError{Path: path, Owner: owner, Cause: err}
	}

	if err := writeOwner(file, Owner{PID: os.Getpid(), Started: time.Now().UTC()}); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return nil, fmt.Errorf("write lock file %s: %w", path, err)
	}
	slog.Debug("lockfile.Acquire: lock held", "lock_path", path, "pid", os.Getpid())
	return &Lock{file: file, path: path}, nil
}

func writeOwner(file *os.File, o Owner) error {
	if err := file.Truncate(0); err != nil {
		return err
	}
	if _, err := file.Seek(0, 0); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(file, "pid=%d\nstarted=%s\n", o.PID, o.Started.Format(time.RFC3339)); err != nil {
		return err
	}
	return file.Sync()
}

// ReadOwner parses the owner recorded in the lock file at path.
func ReadOwner(path string) (Owner, error) {
	f, err := os.Open(path)
	if err != nil {
		return Owner{}, err
	}
	defer f.Close()

	var o Owner
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		k, v, ok := strings.Cut(sc.Text(), "=")
		if !ok {
			continue
		}
		switch k {
		case "pid":
			o.PID, _ = strconv.Atoi(v)
		case "started":
			o.Started, _ = time.Parse(time.RFC3339, v)
		}
	}
	return o, sc.Err()
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release drops the lock and removes the lock file. It is safe to call more
// than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	l.file.Close()
	l.file = nil
	if rmErr := os.Remove(l.path); rmErr != nil && !os.IsNotExist(rmErr) {
		slog.Warn("lockfile.Release: failed to remove lock file", "lock_path", l.path, "error", rmErr)
	}
	slog.Debug("lockfile.Release: lock released", "lock_path", l.path)
	return err
}

// LockError reports a lock held by another process.
type LockError struct {
	Path  string
	Owner Owner
	Cause error
}

func (e *LockError) Error() string {
	msg := "another PayFlow instance is using this state directory (lock file " + e.Path
	if e.Owner.PID > 0 {
		msg += fmt.Sprintf(", pid %d", e.Owner.PID)
		if !e.Owner.Started.IsZero() {
			msg += ", started " + e.Owner.Started.Format(time.RFC3339)
		}
	}
	return msg + ")"
}

func (e *LockError) Unwrap() []error { return []error{ErrLocked, e.Cause} }
