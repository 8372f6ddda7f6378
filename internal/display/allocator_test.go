package display

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testConfig uses sleep as a stand-in display server so tests never need a
// real X stack.
func testConfig(lockDir string, min, max int) Config {
	return Config{
		Min:         min,
		Max:         max,
		LockDir:     lockDir,
		ServerPath:  "sleep",
		ServerArgs:  []string{"30"},
		SettleDelay: 10 * time.Millisecond,
	}
}

func claimFiles(t *testing.T, lockDir string) []string {
	t.Helper()

	matches, err := filepath.Glob(filepath.Join(lockDir, ".termglyph-X*.lock"))
	require.NoError(t, err)

	return matches
}

func TestAcquireReleaseCycle(t *testing.T) {
	t.Parallel()

	lockDir := t.TempDir()
	a := NewAllocator(logrus.New(), testConfig(lockDir, 700, 703))

	lease, err := a.Acquire(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 700, lease.ID)
	assert.Equal(t, ":700", lease.Display())
	assert.Len(t, claimFiles(t, lockDir), 1)

	a.Release(lease)
	assert.Empty(t, claimFiles(t, lockDir))
}

func TestConcurrentLeasesAreDisjoint(t *testing.T) {
	t.Parallel()

	lockDir := t.TempDir()
	a := NewAllocator(logrus.New(), testConfig(lockDir, 700, 707))

	const n = 8

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		leases []*Lease
	)

	for i := 0; i < n; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			lease, err := a.Acquire(context.Background())
			if err != nil {
				t.Errorf("acquire failed: %v", err)
				return
			}

			mu.Lock()
			leases = append(leases, lease)
			mu.Unlock()
		}()
	}

	wg.Wait()
	require.Len(t, leases, n)

	seen := make(map[int]bool, n)
	for _, lease := range leases {
		assert.False(t, seen[lease.ID], "identifier %d handed out twice", lease.ID)
		seen[lease.ID] = true
	}

	for _, lease := range leases {
		a.Release(lease)
	}

	assert.Empty(t, claimFiles(t, lockDir))
}

func TestFreedIdentifierIsReused(t *testing.T) {
	t.Parallel()

	lockDir := t.TempDir()
	a := NewAllocator(logrus.New(), testConfig(lockDir, 710, 710))

	first, err := a.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 710, first.ID)

	_, err = a.Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResourceExhausted)

	a.Release(first)

	second, err := a.Acquire(context.Background())
	require.NoError(t, err, "freed identifier must be acquirable again")
	assert.Equal(t, 710, second.ID)

	a.Release(second)
}

func TestAcquireSkipsForeignXLock(t *testing.T) {
	t.Parallel()

	lockDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(lockDir, ".X720-lock"), []byte("1234\n"), 0o644))

	a := NewAllocator(logrus.New(), testConfig(lockDir, 720, 720))

	_, err := a.Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResourceExhausted)
}

func TestAcquireFailedServerLeavesNothingBehind(t *testing.T) {
	t.Parallel()

	lockDir := t.TempDir()
	cfg := testConfig(lockDir, 730, 732)
	cfg.ServerPath = "false"
	cfg.ServerArgs = nil
	cfg.SettleDelay = 500 * time.Millisecond

	a := NewAllocator(logrus.New(), cfg)

	_, err := a.Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrResourceExhausted)
	assert.Empty(t, claimFiles(t, lockDir), "failed acquisitions must not leak claim artifacts")
}

func TestAcquireMissingServerBinary(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t.TempDir(), 740, 741)
	cfg.ServerPath = fmt.Sprintf("no-such-display-server-%d", os.Getpid())

	_, err := NewAllocator(logrus.New(), cfg).Acquire(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestAcquireCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAllocator(logrus.New(), testConfig(t.TempDir(), 750, 751)).Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	lockDir := t.TempDir()
	a := NewAllocator(logrus.New(), testConfig(lockDir, 760, 760))

	lease, err := a.Acquire(context.Background())
	require.NoError(t, err)

	a.Release(lease)
	a.Release(lease)
	a.Release(nil)

	assert.Empty(t, claimFiles(t, lockDir))
}
