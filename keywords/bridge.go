// Package keywords exposes the web-testing keyword surface of the
// bridge. Each keyword maps to one request/response exchange with the
// playwright engine process, carried over a session that is opened for
// that call and torn down before the keyword returns.
package keywords

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/marketsquare/playwright-bridge/rpc"
)

// Engine supervises the playwright engine process. Start ensures the
// process is running and returns its RPC port; Alive reports whether
// the process is still up without performing any RPC.
type Engine interface {
	Start(ctx context.Context) (int, error)
	Alive() bool
}

// Stopper is implemented by engines that can be shut down, such as
// *engine.Supervisor.
type Stopper interface {
	Stop() error
}

// Bridge translates keyword invocations into engine calls. It holds no
// state of its own beyond the engine it drives; a single Bridge is
// meant to live for the whole test run.
type Bridge struct {
	baseLog *zap.Logger
	log     *zap.SugaredLogger
	engine  Engine
}

type Option func(b *Bridge)

func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) {
		b.baseLog = l
	}
}

func New(engine Engine, opts ...Option) (*Bridge, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	b := &Bridge{
		baseLog: logger,
		engine:  engine,
	}
	for _, o := range opts {
		o(b)
	}
	b.log = b.baseLog.Named("keywords").Sugar()
	return b, nil
}

// session lazily starts the engine if needed, verifies it is still
// alive, and opens a fresh RPC session to it. The caller owns the
// session and must close it on every path.
func (b *Bridge) session(ctx context.Context) (*rpc.Session, error) {
	port, err := b.engine.Start(ctx)
	if err != nil {
		return nil, err
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	if !b.engine.Alive() {
		return nil, &rpc.ConnectionError{Addr: addr}
	}
	return rpc.Open(ctx, addr, rpc.WithSessionLogger(b.baseLog))
}

// call performs one keyword exchange: open a session, send the
// request, log the engine's account of what it did, and tear the
// session down.
func (b *Bridge) call(ctx context.Context, req rpc.Request) (*rpc.Response, error) {
	sess, err := b.session(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	resp, err := sess.Call(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Log != "" {
		b.log.Info(resp.Log)
	}
	return resp, nil
}

// Close shuts down the engine process if the engine supports it. It is
// meant to be called once at the end of a test run.
func (b *Bridge) Close() error {
	stopper, ok := b.engine.(Stopper)
	if !ok {
		return nil
	}
	b.log.Debug("closing playwright process")
	return stopper.Stop()
}
