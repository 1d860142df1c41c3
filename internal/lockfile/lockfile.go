// Package lockfile keeps two LegalDraft processes from sharing one state directory.
//
// The lock is an flock(2) on a file in the state directory, so the kernel drops it when
// the holding process exits for any reason.
package lockfile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// LockFileName is created inside the state directory.
const LockFileName = "legaldraft.lock"

// Lock is a held state directory lock.
type Lock struct {
	file *os.File
	path string
}

// LockError reports that another process holds the lock.
type LockError struct {
	LockPath  string
	HolderPID int
	Running   bool
	Cause     error
}

func (e *LockError) Error() string {
	holder := "unknown process"
	if e.HolderPID > 0 {
		state := "not running, lock may be stale"
		if e.Running {
			state = "running"
		}
		holder = fmt.Sprintf("PID %d (%s)", e.HolderPID, state)
	}
	return fmt.Sprintf("state directory is locked by %s; lock file %s", holder, e.LockPath)
}

func (e *LockError) Unwrap() error { return e.Cause }

// AcquireLock takes the lock for stateDir, creating the directory if needed. It fails
// immediately with a *LockError when the lock is held.
func AcquireLock(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}
	path := filepath.Join(stateDir, LockFileName)

	// Truncating before the lock is held would erase the holder's PID.
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		lockErr := &LockError{LockPath: path, Cause: err}
		if pid := holderPID(path); pid > 0 {
			lockErr.HolderPID = pid
			lockErr.Running = processRunning(pid)
		}
		slog.Error("lockfile.AcquireLock: state directory already locked", "lock_path", path, "holder_pid", lockErr.HolderPID)
		return nil, lockErr
	}

	if err := writePID(file); err != nil {
		syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
		file.Close()
		return nil, fmt.Errorf("failed to record PID in %s: %w", path, err)
	}
	slog.Info("lockfile.AcquireLock: state directory locked", "lock_path", path, "pid", os.Getpid())
	return &Lock{file: file, path: path}, nil
}

func writePID(file *os.File) error {
	if err := file.Truncate(0); err != nil {
		return err
	}
	if _, err := file.WriteAt([]byte("pid="+strconv.Itoa(os.Getpid())+"\n"), 0); err != nil {
		return err
	}
	return file.Sync()
}

// Release drops the lock and removes the lock file. Calling it again is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	var errs []error
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, err)
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		errs = append(errs, err)
	}
	if err := l.file.Close(); err != nil {
		errs = append(errs, err)
	}
	l.file = nil
	slog.Debug("lockfile.Lock.Release: state directory unlocked", "lock_path", l.path)
	return errors.Join(errs...)
}

// holderPID reads the "pid=N" line written by the holder, or returns 0.
func holderPID(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	for _, line := range strings.Split(string(data), "\n") {
		if v, ok := strings.CutPrefix(strings.TrimSpace(line), "pid="); ok {
			if pid, err := strconv.Atoi(v); err == nil {
				return pid
			}
		}
	}
	return 0
}

// processRunning probes pid with signal 0.
func processRunning(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}
