// Package sentinel implements spec.md §5's "wake every second" liveness
// check: the request reader periodically probes either an inherited file
// lock or a parent process's PID, and a lost sentinel triggers a clean
// process exit (no request-level cancellation). Grounded on the teacher's
// gofrs/flock usage in internal/config/write.go's withFileLock for the lock
// probe, and golang.org/x/sys/unix for the raw signal-0 PID probe.
package sentinel

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
)

// Interval is how often the daemon re-checks its configured sentinel, per
// spec.md §5 ("wakes every second").
const Interval = time.Second

// Sentinel reports whether the daemon should keep running. A zero-value
// Sentinel (no lock fd, no parent pid configured) always reports alive.
type Sentinel struct {
	lockFD    int
	lock      *flock.Flock // Linux: wraps /proc/self/fd/<lockFD>, non-nil once resolved
	parentPID int
}

// New builds a Sentinel from the daemon's --lock-fd and --parent-pid flags.
// A value <= 0 for either disables that half of the check, matching the
// CLI's documented "-1 disables" default.
func New(lockFD, parentPID int) *Sentinel {
	s := &Sentinel{lockFD: lockFD, parentPID: parentPID}
	if lockFD > 0 && runtime.GOOS == "linux" {
		// /proc/self/fd/<n> re-derives a stable path for an inherited fd so
		// gofrs/flock's path-based API can flock() the same underlying file.
		// Opening that path creates a new open file description, so the
		// parent's lock on the inherited description makes the probe's lock
		// attempt fail for as long as the parent holds it.
		s.lock = flock.New(fmt.Sprintf("/proc/self/fd/%d", lockFD))
	}
	return s
}

// Alive reports whether the configured sentinels still indicate the daemon
// should keep serving requests.
func (s *Sentinel) Alive() bool {
	if s.lockFD > 0 && !s.lockHeld() {
		return false
	}
	if s.parentPID > 0 && !processAlive(s.parentPID) {
		return false
	}
	return true
}

// lockHeld probes whether the lock our parent placed on the inherited fd is
// still in force. A non-blocking exclusive lock attempt that *succeeds*
// means nobody holds it anymore — the parent that was supposed to hold it
// has gone away — so the sentinel reports lost.
func (s *Sentinel) lockHeld() bool {
	if s.lock != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		locked, err := s.lock.TryLockContext(ctx, 10*time.Millisecond)
		if err != nil {
			// Can't even probe the lock (fd gone, /proc unavailable) — treat as lost.
			return false
		}
		if locked {
			_ = s.lock.Unlock()
			return false
		}
		return true
	}
	// Non-Linux fallback: flock() the raw fd directly via the syscall wrapper.
	err := unix.Flock(s.lockFD, unix.LOCK_EX|unix.LOCK_NB)
	if err == nil {
		_ = unix.Flock(s.lockFD, unix.LOCK_UN)
		return false
	}
	return err == unix.EWOULDBLOCK || err == unix.EAGAIN
}

// processAlive uses a signal-0 probe: sending signal 0 performs all error
// checking but delivers no signal, the standard way to test whether a pid
// is still valid without perturbing it.
func processAlive(pid int) bool {
	return unix.Kill(pid, 0) == nil
}

// Watch runs Alive on Interval until it returns false or ctx is done,
// invoking onLost exactly once when the sentinel is first observed lost.
func Watch(ctx context.Context, s *Sentinel, onLost func()) {
	ticker := time.NewTicker(Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.Alive() {
				onLost()
				return
			}
		}
	}
}
