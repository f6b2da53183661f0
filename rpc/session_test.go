package rpc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsquare/playwright-bridge/internal/enginetest"
	"github.com/marketsquare/playwright-bridge/rpc"
)

func startEngine(t *testing.T) *enginetest.Server {
	t.Helper()
	srv, err := enginetest.NewServer()
	require.NoError(t, err)
	go srv.Run()
	t.Cleanup(func() {
		require.NoError(t, srv.Stop())
	})
	return srv
}

func TestSessionCall(t *testing.T) {
	srv := startEngine(t)
	srv.Respond(rpc.MethodGetTitle, rpc.Response{Log: "fetched title", Body: "Example Domain"})

	sess, err := rpc.Open(context.Background(), srv.Addr())
	require.NoError(t, err)

	resp, err := sess.Call(context.Background(), rpc.Request{Method: rpc.MethodGetTitle})
	require.NoError(t, err)
	assert.Equal(t, "Example Domain", resp.Body)
	assert.Equal(t, "fetched title", resp.Log)

	require.NoError(t, sess.Close())

	waitForClosedChannels(t, srv, 1)
	assert.Equal(t, 1, srv.OpenedChannels())
}

func TestSessionRemoteError(t *testing.T) {
	srv := startEngine(t)
	srv.Respond(rpc.MethodClickButton, rpc.Response{Error: "no element matching selector"})

	sess, err := rpc.Open(context.Background(), srv.Addr())
	require.NoError(t, err)
	defer sess.Close()

	_, err = sess.Call(context.Background(), rpc.Request{Method: rpc.MethodClickButton, Selector: "#missing"})
	require.Error(t, err)
	var callErr *rpc.CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, rpc.MethodClickButton, callErr.Method)
	assert.Contains(t, err.Error(), "no element matching selector")
}

func TestSessionOpenUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// nothing listens on port 1
	_, err := rpc.Open(ctx, "127.0.0.1:1")
	require.Error(t, err)
	var connErr *rpc.ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestSessionDoubleCloseIsNoop(t *testing.T) {
	srv := startEngine(t)

	sess, err := rpc.Open(context.Background(), srv.Addr())
	require.NoError(t, err)

	_, err = sess.Call(context.Background(), rpc.Request{Method: rpc.MethodCloseBrowser})
	require.NoError(t, err)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())

	waitForClosedChannels(t, srv, 1)
	assert.Equal(t, 1, srv.OpenedChannels())
}

// waitForClosedChannels polls until the server has observed the
// expected number of clean channel closures; the close handshake
// completes asynchronously from the client's perspective.
func waitForClosedChannels(t *testing.T, srv *enginetest.Server, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return srv.ClosedChannels() == want
	}, 2*time.Second, 10*time.Millisecond)
}
