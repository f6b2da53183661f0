// Package engine owns the lifecycle of the playwright engine process:
// lazy spawn on first use, readiness probing with a bounded attempt
// budget, liveness detection, and forced shutdown.
package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/marketsquare/playwright-bridge/internal/files"
	"github.com/marketsquare/playwright-bridge/internal/netutil"
)

// LogFileName is the file under the output dir that receives the
// engine's combined stdout and stderr.
const LogFileName = "playwright-log.txt"

// ProbeFunc checks whether the engine at the given port is ready to
// accept calls. A nil return means ready.
type ProbeFunc func(ctx context.Context, port int) error

// Supervisor spawns and supervises a single engine process. The
// process is started lazily on the first Start call and the same
// handle is reused for the life of the Supervisor; the assigned port
// never changes once the process is up.
type Supervisor struct {
	log           *zap.SugaredLogger
	outputDir     string
	command       []string
	probeInterval time.Duration
	probeAttempts int
	probe         ProbeFunc

	mut      sync.Mutex
	handle   *handle
	startErr error
}

// handle is the supervisor's view of the spawned process.
type handle struct {
	cmd     *exec.Cmd
	port    int
	logFile *os.File
	// exited is closed by the wait goroutine when the process is gone.
	exited   chan struct{}
	stopOnce sync.Once
}

type Option func(s *Supervisor)

func WithLogger(l *zap.Logger) Option {
	return func(s *Supervisor) {
		s.log = l.Named("supervisor").Sugar()
	}
}

// WithOutputDir sets the directory that receives the engine log file.
func WithOutputDir(dir string) Option {
	return func(s *Supervisor) {
		s.outputDir = dir
	}
}

// WithCommand overrides the engine command. The default locates the
// Node wrapper script next to the bridge and runs it with "node".
func WithCommand(name string, args ...string) Option {
	return func(s *Supervisor) {
		s.command = append([]string{name}, args...)
	}
}

func WithProbeInterval(d time.Duration) Option {
	return func(s *Supervisor) {
		s.probeInterval = d
	}
}

func WithProbeAttempts(n int) Option {
	return func(s *Supervisor) {
		s.probeAttempts = n
	}
}

func WithProbe(p ProbeFunc) Option {
	return func(s *Supervisor) {
		s.probe = p
	}
}

func New(opts ...Option) (*Supervisor, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	s := &Supervisor{
		log:           logger.Named("supervisor").Sugar(),
		outputDir:     ".",
		probeInterval: 100 * time.Millisecond,
		probeAttempts: 50,
		probe:         DefaultProbe,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Start ensures the engine process is running and returns its assigned
// port. It is idempotent: an existing handle is returned unchanged,
// even if the process has since died or been stopped; liveness is a
// separate concern checked by Alive. A startup failure is sticky, so
// later Starts report the recorded error instead of respawning.
func (s *Supervisor) Start(ctx context.Context) (int, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	if s.startErr != nil {
		return 0, s.startErr
	}
	if s.handle != nil {
		return s.handle.port, nil
	}

	h, err := s.spawn(ctx)
	if err != nil {
		s.startErr = err
		return 0, err
	}
	s.handle = h
	return h.port, nil
}

func (s *Supervisor) spawn(ctx context.Context) (*handle, error) {
	port, err := netutil.GetEphemeralTCPPort()
	if err != nil {
		return nil, fmt.Errorf("allocating engine port: %w", err)
	}

	command := s.command
	var wd string
	if len(command) == 0 {
		command, wd, err = discoverWrapper()
		if err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(s.outputDir, 0777); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	logFile, err := os.Create(filepath.Join(s.outputDir, LogFileName))
	if err != nil {
		return nil, fmt.Errorf("creating engine log file: %w", err)
	}

	s.log.Infow("starting playwright process", "command", command, "port", port)
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = wd
	cmd.Env = []string{
		fmt.Sprintf("PORT=%d", port),
		"PATH=" + os.Getenv("PATH"),
	}
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("starting playwright process: %w", err)
	}

	h := &handle{
		cmd:     cmd,
		port:    port,
		logFile: logFile,
		exited:  make(chan struct{}),
	}
	go func() {
		cmd.Wait()
		close(h.exited)
	}()

	if err := s.awaitReady(ctx, h); err != nil {
		// Don't leave the half-started process behind.
		h.kill(s.log)
		return nil, err
	}

	s.log.Infow("connected to the playwright process", "port", port)
	return h, nil
}

// awaitReady probes the engine at a fixed interval until it responds,
// the attempt budget runs out, or the process dies.
func (s *Supervisor) awaitReady(ctx context.Context, h *handle) error {
	ticker := time.NewTicker(s.probeInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= s.probeAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for playwright process: %w", ctx.Err())
		case <-h.exited:
			return &StartupError{
				Port:     h.port,
				Attempts: attempt,
				Err:      fmt.Errorf("engine process exited before becoming ready"),
			}
		case <-ticker.C:
		}

		err := s.probe(ctx, h.port)
		if err == nil {
			return nil
		}
		s.log.Debugf("health probe attempt %d failed: %s", attempt, err)
	}
	return &StartupError{Port: h.port, Attempts: s.probeAttempts}
}

// Alive reports whether the engine process is still running. It
// inspects only the process state, it performs no RPC.
func (s *Supervisor) Alive() bool {
	s.mut.Lock()
	h := s.handle
	s.mut.Unlock()
	if h == nil {
		return false
	}
	select {
	case <-h.exited:
		return false
	default:
		return true
	}
}

// Port returns the engine's assigned port, or 0 if it was never
// started.
func (s *Supervisor) Port() int {
	s.mut.Lock()
	defer s.mut.Unlock()
	if s.handle == nil {
		return 0
	}
	return s.handle.port
}

// Stop force-terminates the engine process. It is idempotent: calling
// it without a running process is a no-op.
func (s *Supervisor) Stop() error {
	s.mut.Lock()
	h := s.handle
	s.mut.Unlock()
	if h == nil {
		return nil
	}
	s.log.Debug("stopping playwright process")
	h.kill(s.log)
	s.log.Debug("playwright process stopped")
	return nil
}

// kill terminates the process, waits for it to be reaped, and closes
// the log file. Safe to call more than once.
func (h *handle) kill(log *zap.SugaredLogger) {
	h.stopOnce.Do(func() {
		select {
		case <-h.exited:
			// already gone
		default:
			if err := h.cmd.Process.Kill(); err != nil {
				log.Debugf("killing playwright process: %s", err)
			}
		}
		<-h.exited
		h.logFile.Close()
	})
}

// discoverWrapper finds the Node wrapper script by walking up from the
// working directory, mirroring how the wrapper ships alongside the
// bridge.
func discoverWrapper() (command []string, wd string, err error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("getting working dir: %w", err)
	}
	wrapperDir, err := files.FindUp("wrapper", cwd)
	if err != nil {
		return nil, "", fmt.Errorf("locating wrapper dir: %w", err)
	}
	if wrapperDir == "" {
		return nil, "", fmt.Errorf("could not locate the engine wrapper directory from %s", cwd)
	}
	script := filepath.Join(wrapperDir, "index.js")
	return []string{"node", script}, wrapperDir, nil
}
