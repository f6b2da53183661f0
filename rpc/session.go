// Package rpc implements the wire protocol spoken with the playwright
// engine process: a plain HTTP health endpoint for liveness probing,
// and one fresh WebSocket channel per keyword call carrying a single
// JSON request/response exchange.
package rpc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const readLimit = 32768

// Session is a single-call channel to the engine. It is opened fresh
// for each keyword invocation and must be closed before control
// returns to the keyword's caller; it is never shared or pooled.
type Session struct {
	id     string
	addr   string
	conn   *websocket.Conn
	log    *zap.SugaredLogger
	closed bool
}

type SessionOption func(s *Session)

func WithSessionLogger(l *zap.Logger) SessionOption {
	return func(s *Session) {
		s.log = l.Named("rpc_session").Sugar()
	}
}

// Open dials a fresh WebSocket channel to the engine's RPC endpoint at
// the given host:port address. A dial failure is reported as a
// *ConnectionError.
func Open(ctx context.Context, addr string, opts ...SessionOption) (*Session, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	s := &Session{
		id:   uuid.NewString(),
		addr: addr,
		log:  logger.Named("rpc_session").Sugar(),
	}
	for _, o := range opts {
		o(s)
	}

	u := fmt.Sprintf("ws://%s/rpc", addr)
	s.log.Debugw("dialing engine", "id", s.id, "URL", u)
	conn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{})
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}
	conn.SetReadLimit(readLimit)
	s.conn = conn
	return s, nil
}

// Call sends the request and reads the single response. A transport
// failure or an engine-reported error is returned as a *CallError.
func (s *Session) Call(ctx context.Context, req Request) (*Response, error) {
	s.log.Debugw("sending request", "id", s.id, "method", req.Method)
	if err := wsjson.Write(ctx, s.conn, req); err != nil {
		return nil, &CallError{Method: req.Method, Err: fmt.Errorf("writing request: %w", err)}
	}
	var resp Response
	if err := wsjson.Read(ctx, s.conn, &resp); err != nil {
		return nil, &CallError{Method: req.Method, Err: fmt.Errorf("reading response: %w", err)}
	}
	if resp.Error != "" {
		return nil, &CallError{Method: req.Method, Remote: resp.Error}
	}
	return &resp, nil
}

// Close tears down the channel. It is safe to call more than once;
// only the first call closes the connection.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.log.Debugw("closing session", "id", s.id)
	return s.conn.Close(websocket.StatusNormalClosure, "done")
}
