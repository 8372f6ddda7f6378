// Package display reserves virtual-display identifiers and manages the
// headless display server backing each one. Identifiers come from a bounded
// scan window; the claim step is a single atomic check-and-create of a lock
// artifact, so concurrent acquisitions never select the same identifier.
package display

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrResourceExhausted means every identifier in the scan window is claimed.
	ErrResourceExhausted = errors.New("no free display identifier")

	errServerNotFound = errors.New("display server binary not found")
	errServerExited   = errors.New("display server exited during settle")
)

// DisplayPlaceholder is substituted with ":<id>" in the server args template.
const DisplayPlaceholder = "{display}"

// Config controls the identifier window and the display server command.
type Config struct {
	// Min and Max bound the identifier scan window, inclusive.
	Min int
	Max int
	// LockDir holds the X server lock files and this allocator's claim files.
	LockDir string
	// ServerPath is the headless display server binary.
	ServerPath string
	// ServerArgs is the argument template; {display} becomes ":<id>".
	ServerArgs []string
	// SettleDelay is how long a freshly started server gets before the
	// lease is handed out.
	SettleDelay time.Duration
}

// Lease is one reserved display identifier plus the server process backing
// it. It belongs to a single run and is released on every exit path.
type Lease struct {
	ID int

	claimPath string
	cmd       *exec.Cmd
	exited    chan error
	released  bool
}

// Display returns the DISPLAY environment value for this lease.
func (l *Lease) Display() string {
	return fmt.Sprintf(":%d", l.ID)
}

// Allocator hands out display leases.
type Allocator interface {
	Acquire(ctx context.Context) (*Lease, error)
	Release(lease *Lease)
}

type allocator struct {
	log logrus.FieldLogger
	cfg Config

	mu sync.Mutex
}

var _ Allocator = (*allocator)(nil)

// NewAllocator creates a display allocator over the configured window.
func NewAllocator(log logrus.FieldLogger, cfg Config) Allocator {
	return &allocator{
		log: log.WithField("component", "display_allocator"),
		cfg: cfg,
	}
}

// Acquire scans the identifier window for a value with no pre-existing lock
// artifact, claims it, starts the display server on it, waits the settle
// delay, and returns the lease. Identifiers whose server fails to start are
// unclaimed and skipped. Every identifier claimed or busy fails with
// ErrResourceExhausted.
func (a *allocator) Acquire(ctx context.Context) (*Lease, error) {
	if _, err := exec.LookPath(a.cfg.ServerPath); err != nil {
		return nil, fmt.Errorf("%w: %s", errServerNotFound, a.cfg.ServerPath)
	}

	for id := a.cfg.Min; id <= a.cfg.Max; id++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if a.xLockExists(id) {
			continue
		}

		claimPath, claimed := a.claim(id)
		if !claimed {
			continue
		}

		lease, err := a.startServer(ctx, id, claimPath)
		if err != nil {
			a.removeClaim(claimPath)

			if ctx.Err() != nil {
				return nil, err
			}

			a.log.WithError(err).WithField("display", id).Warn("display server failed, trying next identifier")

			continue
		}

		a.log.WithField("display", lease.Display()).Debug("acquired display")

		return lease, nil
	}

	return nil, fmt.Errorf("%w in :%d..:%d", ErrResourceExhausted, a.cfg.Min, a.cfg.Max)
}

// Release terminates the lease's display server and removes the claim
// artifact. Safe to call more than once and safe on a lease whose server is
// already gone.
func (a *allocator) Release(lease *Lease) {
	if lease == nil {
		return
	}

	a.mu.Lock()
	if lease.released {
		a.mu.Unlock()
		return
	}

	lease.released = true
	a.mu.Unlock()

	if lease.cmd != nil && lease.cmd.Process != nil {
		// The process may already be gone; that race is expected.
		_ = lease.cmd.Process.Kill()
		<-lease.exited
	}

	a.removeClaim(lease.claimPath)

	a.log.WithField("display", lease.Display()).Debug("released display")
}

// claim atomically creates the claim artifact for an identifier. A false
// return means another allocator got there first.
func (a *allocator) claim(id int) (string, bool) {
	path := a.claimPath(id)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) //nolint:gosec // G304: path built from the configured lock dir
	if err != nil {
		return "", false
	}

	fmt.Fprintf(f, "%d\n", os.Getpid())
	_ = f.Close()

	return path, true
}

func (a *allocator) startServer(ctx context.Context, id int, claimPath string) (*Lease, error) {
	args := make([]string, 0, len(a.cfg.ServerArgs))
	for _, arg := range a.cfg.ServerArgs {
		if arg == DisplayPlaceholder {
			arg = fmt.Sprintf(":%d", id)
		}

		args = append(args, arg)
	}

	cmd := exec.Command(a.cfg.ServerPath, args...) //nolint:gosec // G204: server binary comes from operator config
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting display server on :%d: %w", id, err)
	}

	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	// Give the server its settle window, but notice it dying early.
	settle := time.NewTimer(a.cfg.SettleDelay)
	defer settle.Stop()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-exited

		return nil, ctx.Err()
	case err := <-exited:
		return nil, fmt.Errorf("%w: :%d: %v", errServerExited, id, err)
	case <-settle.C:
	}

	return &Lease{
		ID:        id,
		claimPath: claimPath,
		cmd:       cmd,
		exited:    exited,
	}, nil
}

func (a *allocator) xLockExists(id int) bool {
	_, err := os.Stat(filepath.Join(a.cfg.LockDir, fmt.Sprintf(".X%d-lock", id)))
	return err == nil
}

func (a *allocator) claimPath(id int) string {
	return filepath.Join(a.cfg.LockDir, fmt.Sprintf(".termglyph-X%d.lock", id))
}

func (a *allocator) removeClaim(path string) {
	if path == "" {
		return
	}

	_ = os.Remove(path)
}
