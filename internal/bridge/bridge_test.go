package bridge

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lioncrest/paneld/internal/logging"
)

func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()

	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random port
		NoLog:  true,
		NoSigs: true,
	}

	srv, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go srv.Start()

	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		srv.Shutdown()
		srv.WaitForShutdown()
	})

	return srv
}

// fakeBridge stands in for the extension-side responder.
type fakeBridge struct {
	nc *nats.Conn
}

func newFakeBridge(t *testing.T, nc *nats.Conn) *fakeBridge {
	t.Helper()
	return &fakeBridge{nc: nc}
}

func (f *fakeBridge) respond(t *testing.T, subject string, handler func(data []byte) any) {
	t.Helper()
	sub, err := f.nc.Subscribe(subject, func(msg *nats.Msg) {
		reply, err := json.Marshal(handler(msg.Data))
		require.NoError(t, err)
		_ = msg.Respond(reply)
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Unsubscribe() })
}

func newTestClient(t *testing.T) (*Client, *fakeBridge) {
	t.Helper()

	ns := startTestNATSServer(t)
	nc, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	c, err := New(nc, logging.NewTestLogger().Logger)
	require.NoError(t, err)
	return c, newFakeBridge(t, nc)
}

func TestGetToken(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the minted token", func(t *testing.T) {
		c, bridge := newTestClient(t)

		var sawInteractive bool
		bridge.respond(t, SubjectTokenGet, func(data []byte) any {
			var req tokenRequest
			require.NoError(t, json.Unmarshal(data, &req))
			sawInteractive = req.Interactive
			return tokenReply{Token: "tok-1"}
		})

		token, err := c.GetToken(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, "tok-1", token)
		assert.True(t, sawInteractive)
	})

	t.Run("bridge-side errors surface verbatim", func(t *testing.T) {
		c, bridge := newTestClient(t)

		bridge.respond(t, SubjectTokenGet, func([]byte) any {
			return tokenReply{Error: "The user did not approve access."}
		})

		_, err := c.GetToken(ctx, false)
		require.Error(t, err)
		assert.Equal(t, "The user did not approve access.", err.Error())
	})

	t.Run("empty reply is an error", func(t *testing.T) {
		c, bridge := newTestClient(t)

		bridge.respond(t, SubjectTokenGet, func([]byte) any {
			return tokenReply{}
		})

		_, err := c.GetToken(ctx, false)
		assert.ErrorContains(t, err, "no token")
	})

	t.Run("missing bridge reports unavailable", func(t *testing.T) {
		c, _ := newTestClient(t)

		ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()

		_, err := c.GetToken(ctx, false)
		require.Error(t, err)
	})
}

func TestRemoveCachedToken(t *testing.T) {
	ctx := context.Background()
	c, bridge := newTestClient(t)

	var removed string
	bridge.respond(t, SubjectTokenRemove, func(data []byte) any {
		var req removeRequest
		require.NoError(t, json.Unmarshal(data, &req))
		removed = req.Token
		return removeReply{}
	})

	require.NoError(t, c.RemoveCachedToken(ctx, "tok-stale"))
	assert.Equal(t, "tok-stale", removed)
}

func TestEval(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the script result", func(t *testing.T) {
		c, bridge := newTestClient(t)

		bridge.respond(t, SubjectPageEval, func(data []byte) any {
			var req evalRequest
			require.NoError(t, json.Unmarshal(data, &req))
			assert.Equal(t, 7, req.TabID)
			assert.Contains(t, req.Expression, "data-legacy-thread-id")
			return evalReply{Result: "18c2f0a1b2d3e4f5"}
		})

		result, err := c.Eval(ctx, 7, `(() => { const el = document.querySelector('div[role="main"] [data-legacy-thread-id]'); return el ? el.getAttribute('data-legacy-thread-id') : ''; })()`)
		require.NoError(t, err)
		assert.Equal(t, "18c2f0a1b2d3e4f5", result)
	})

	t.Run("injection failures surface as errors", func(t *testing.T) {
		c, bridge := newTestClient(t)

		bridge.respond(t, SubjectPageEval, func([]byte) any {
			return evalReply{Error: "Cannot access contents of the page."}
		})

		_, err := c.Eval(ctx, 7, "1")
		assert.ErrorContains(t, err, "Cannot access contents")
	})
}
