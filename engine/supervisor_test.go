package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func okProbe(ctx context.Context, port int) error { return nil }

func failProbe(ctx context.Context, port int) error {
	return errors.New("connection refused")
}

func newTestSupervisor(t *testing.T, opts ...Option) *Supervisor {
	t.Helper()
	opts = append([]Option{
		WithOutputDir(t.TempDir()),
		WithProbeInterval(10 * time.Millisecond),
		WithProbeAttempts(5),
	}, opts...)
	s, err := New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, s.Stop())
	})
	return s
}

func TestStartIsLazyAndIdempotent(t *testing.T) {
	s := newTestSupervisor(t, WithCommand("sleep", "60"), WithProbe(okProbe))

	require.Equal(t, 0, s.Port())
	require.False(t, s.Alive())

	port, err := s.Start(context.Background())
	require.NoError(t, err)
	require.Greater(t, port, 0)
	require.True(t, s.Alive())

	again, err := s.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, port, again)
	require.Equal(t, port, s.Port())
}

func TestConcurrentStartersObserveOneProcess(t *testing.T) {
	var mut sync.Mutex
	probed := map[int]bool{}
	s := newTestSupervisor(t, WithCommand("sleep", "60"), WithProbe(func(ctx context.Context, port int) error {
		mut.Lock()
		probed[port] = true
		mut.Unlock()
		return nil
	}))

	ports := make([]int, 4)
	group, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < 4; i++ {
		i := i
		group.Go(func() error {
			port, err := s.Start(ctx)
			ports[i] = port
			return err
		})
	}
	require.NoError(t, group.Wait())

	for _, p := range ports {
		assert.Equal(t, ports[0], p)
	}
	// only one process was spawned, so only one port was ever probed
	assert.Len(t, probed, 1)
}

func TestStartupTimeout(t *testing.T) {
	s := newTestSupervisor(t, WithCommand("sleep", "60"), WithProbe(failProbe))

	begin := time.Now()
	_, err := s.Start(context.Background())
	elapsed := time.Since(begin)
	require.Error(t, err)

	var startupErr *StartupError
	require.ErrorAs(t, err, &startupErr)
	assert.Equal(t, 5, startupErr.Attempts)
	assert.Contains(t, err.Error(), fmt.Sprintf("port %d", startupErr.Port))

	// 5 attempts at 10ms each: not immediate, not unbounded
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)

	// the half-started process must not be leaked
	assert.False(t, s.Alive())
}

func TestStartupFailureIsSticky(t *testing.T) {
	s := newTestSupervisor(t, WithCommand("sleep", "60"), WithProbe(failProbe))

	_, err := s.Start(context.Background())
	require.Error(t, err)

	begin := time.Now()
	_, err2 := s.Start(context.Background())
	require.Error(t, err2)
	assert.Equal(t, err, err2)
	// no respawn, no probing: the recorded failure returns immediately
	assert.Less(t, time.Since(begin), 10*time.Millisecond)
}

func TestStartupFailsFastWhenProcessExits(t *testing.T) {
	s := newTestSupervisor(t, WithCommand("true"), WithProbe(failProbe))

	_, err := s.Start(context.Background())
	require.Error(t, err)
	var startupErr *StartupError
	require.ErrorAs(t, err, &startupErr)
	assert.Contains(t, err.Error(), "exited")
}

func TestAliveDetectsExit(t *testing.T) {
	s := newTestSupervisor(t, WithCommand("sleep", "0.2"), WithProbe(okProbe))

	_, err := s.Start(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return !s.Alive()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	s := newTestSupervisor(t, WithCommand("sleep", "60"), WithProbe(okProbe))

	require.NoError(t, s.Stop())

	_, err := s.Start(context.Background())
	require.NoError(t, err)
	require.True(t, s.Alive())

	require.NoError(t, s.Stop())
	require.False(t, s.Alive())
	require.NoError(t, s.Stop())
}

func TestCombinedOutputGoesToLogFile(t *testing.T) {
	outputDir := t.TempDir()
	s := newTestSupervisor(t,
		WithOutputDir(outputDir),
		WithCommand("sh", "-c", "echo to-stdout; echo to-stderr 1>&2; sleep 60"),
		WithProbe(okProbe),
	)

	_, err := s.Start(context.Background())
	require.NoError(t, err)

	logPath := filepath.Join(outputDir, LogFileName)
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(logPath)
		if err != nil {
			return false
		}
		return strings.Contains(string(b), "to-stdout") && strings.Contains(string(b), "to-stderr")
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStartContextCanceled(t *testing.T) {
	s := newTestSupervisor(t, WithCommand("sleep", "60"), WithProbe(failProbe))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Start(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, s.Alive())
}
