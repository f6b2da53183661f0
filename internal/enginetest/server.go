// Package enginetest provides an in-process stand-in for the playwright
// engine process. It speaks the same wire protocol (HTTP health probe
// plus one WebSocket channel per call) and records calls and channel
// lifecycle counts so tests can assert on them.
package enginetest

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/marketsquare/playwright-bridge/rpc"
)

// Server is a fake engine listening on an OS-assigned localhost port.
type Server struct {
	log        *zap.SugaredLogger
	listenAddr string
	listener   net.Listener
	httpServer *http.Server

	mut       sync.Mutex
	healthy   bool
	responses map[string]rpc.Response
	calls     []rpc.Request
	opened    int
	closed    int
}

type Option func(s *Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.log = l.Named("mock_engine").Sugar()
	}
}

// WithListenAddr overrides the default 127.0.0.1:0 listen address.
func WithListenAddr(addr string) Option {
	return func(s *Server) {
		s.listenAddr = addr
	}
}

// NewServer builds a fake engine and starts listening immediately, so
// Port is valid as soon as NewServer returns. Serving starts on Run.
func NewServer(opts ...Option) (*Server, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	s := &Server{
		log:        logger.Named("mock_engine").Sugar(),
		listenAddr: "127.0.0.1:0",
		healthy:    true,
		responses:  map[string]rpc.Response{},
	}
	for _, o := range opts {
		o(s)
	}

	listener, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listening TCP: %w", err)
	}
	s.listener = listener

	router := httprouter.New()
	router.GET("/health", s.health)
	router.GET("/rpc", s.rpcWS)
	s.httpServer = &http.Server{Handler: router}

	return s, nil
}

// Run serves until Stop is called.
func (s *Server) Run() error {
	err := s.httpServer.Serve(s.listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Stop() error {
	return s.httpServer.Close()
}

func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *Server) Addr() string {
	return fmt.Sprintf("127.0.0.1:%d", s.Port())
}

// SetHealthy controls whether the health endpoint reports ready.
func (s *Server) SetHealthy(healthy bool) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.healthy = healthy
}

// Respond sets the canned response for a method. Methods without a
// canned response get an empty-body success.
func (s *Server) Respond(method string, resp rpc.Response) {
	s.mut.Lock()
	defer s.mut.Unlock()
	s.responses[method] = resp
}

// Calls returns a copy of all requests received so far.
func (s *Server) Calls() []rpc.Request {
	s.mut.Lock()
	defer s.mut.Unlock()
	calls := make([]rpc.Request, len(s.calls))
	copy(calls, s.calls)
	return calls
}

// CallCount returns how many requests arrived for the given method.
func (s *Server) CallCount(method string) int {
	s.mut.Lock()
	defer s.mut.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// OpenedChannels and ClosedChannels report how many RPC channels were
// accepted and how many were shut down cleanly by the client, for
// leak and double-close assertions.
func (s *Server) OpenedChannels() int {
	s.mut.Lock()
	defer s.mut.Unlock()
	return s.opened
}

func (s *Server) ClosedChannels() int {
	s.mut.Lock()
	defer s.mut.Unlock()
	return s.closed
}

func (s *Server) health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.mut.Lock()
	healthy := s.healthy
	s.mut.Unlock()
	if !healthy {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) rpcWS(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
	if err != nil {
		s.log.Debugf("error accepting WebSocket conn: %s", err)
		return
	}
	s.mut.Lock()
	s.opened++
	s.mut.Unlock()

	ctx := r.Context()
	var req rpc.Request
	if err := wsjson.Read(ctx, wsConn, &req); err != nil {
		s.log.Debugf("error reading request: %s", err)
		wsConn.Close(websocket.StatusInternalError, "bad request")
		return
	}

	s.mut.Lock()
	s.calls = append(s.calls, req)
	resp, ok := s.responses[req.Method]
	s.mut.Unlock()
	if !ok {
		resp = rpc.Response{Log: fmt.Sprintf("handled %s", req.Method)}
	}

	if err := wsjson.Write(ctx, wsConn, resp); err != nil {
		s.log.Debugf("error writing response: %s", err)
		wsConn.Close(websocket.StatusInternalError, "write failed")
		return
	}

	// Wait for the client to close the channel. A normal closure means
	// the session was torn down exactly as the protocol requires.
	_, _, err = wsConn.Read(ctx)
	if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		s.mut.Lock()
		s.closed++
		s.mut.Unlock()
	}
	wsConn.Close(websocket.StatusNormalClosure, "done")
}
