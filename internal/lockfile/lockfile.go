// Package lockfile keeps two lumobot servers from sharing one state directory.
//
// The lock is an flock on a file in the state directory, so the kernel releases it
// when the holding process exits, even after a crash.
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

// LockFileName is the name of the lock file created in the state directory.
const LockFileName = "lumobot.lock"

// ErrLocked is matched by LockError with errors.Is.
var ErrLocked = errors.New("state directory is locked by another lumobot process")

// Holder describes the process owning a lock. It is written into the lock file.
type Holder struct {
	PID     int
	Started time.Time
	Addr    string
}

func (h Holder) encode() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pid=%d\n", h.PID)
	if !h.Started.IsZero() {
		fmt.Fprintf(&b, "started=%s\n", h.Started.UTC().Format(time.RFC3339))
	}
	if h.Addr != "" {
		fmt.Fprintf(&b, "addr=%s\n", h.Addr)
	}
	return b.String()
}

// parseHolder reads key=value lines. Unknown keys are ignored.
func parseHolder(content string) (Holder, bool) {
	var h Holder
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			if pid, err := strconv.Atoi(value); err == nil && pid > 0 {
				h.PID = pid
			}
		case "started":
			if ts, err := time.Parse(time.RFC3339, value); err == nil {
				h.Started = ts
			}
		case "addr":
			h.Addr = value
		}
	}
	return h, h.PID > 0
}

// Lock is an acquired state directory lock.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes the exclusive lock on stateDir, creating the directory when missing.
// addr is recorded for the error shown to a second instance.
func Acquire(stateDir, addr string) (*Lock, error) {
	lockPath := filepath.Join(stateDir, LockFileName)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}
	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", lockPath, err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		lockErr := &LockError{Path: lockPath, Cause: err}
		if data, readErr := os.ReadFile(lockPath); readErr == nil {
			if h, ok := parseHolder(string(data)); ok {
				lockErr.Holder = &h
				lockErr.Running = processRunning(h.PID)
			}
		}
		slog.Error("lockfile.Acquire: state directory already locked", "lock_path", lockPath, "holder", lockErr.holderText())
		return nil, lockErr
	}

	// The previous holder's content is only replaced once the lock is ours.
	holder := Holder{PID: os.Getpid(), Started: time.Now(), Addr: addr}
	if err := writeHolder(file, holder); err != nil {
		slog.Warn("lockfile.Acquire: failed to record holder", "lock_path", lockPath, "error", err)
	}

	slog.Info("lockfile.Acquire: state directory locked", "lock_path", lockPath, "pid", holder.PID)
	return &Lock{file: file, path: lockPath}, nil
}

func writeHolder(file *os.File, h Holder) error {
	if err := file.Truncate(0); err != nil {
		return err
	}
	if _, err := file.WriteAt([]byte(h.encode()), 0); err != nil {
		return err
	}
	return file.Sync()
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks and removes the lock file. It is safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	var errs []error
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		errs = append(errs, fmt.Errorf("unlock: %w", err))
	}
	if err := l.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("remove: %w", err))
	}
	l.file = nil
	slog.Info("lockfile.Release: state directory unlocked", "lock_path", l.path)
	return errors.Join(errs...)
}

// LockError reports a lock held by another process.
type LockError struct {
	Path    string
	Holder  *Holder
	Running bool
	Cause   error
}

func (e *LockError) holderText() string {
	if e.Holder == nil {
		return "unknown process"
	}
	text := fmt.Sprintf("PID %d", e.Holder.PID)
	if e.Holder.Addr != "" {
		text += " serving " + e.Holder.Addr
	}
	if !e.Holder.Started.IsZero() {
		text += " since " + e.Holder.Started.Format(time.RFC3339)
	}
	if !e.Running {
		text += " (not running)"
	}
	return text
}

func (e *LockError) Error() string {
	return fmt.Sprintf("another lumobot instance holds %s: %s; remove the file only if that process is gone", e.Path, e.holderText())
}

func (e *LockError) Is(target error) bool {
	return target == ErrLocked
}

func (e *LockError) Unwrap() error {
	return e.Cause
}

// processRunning sends signal 0, which checks for existence without delivering a signal.
func processRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
