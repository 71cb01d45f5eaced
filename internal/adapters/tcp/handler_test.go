package tcp

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchirkin/relay/internal/app"
	"github.com/dchirkin/relay/internal/config"
	"github.com/dchirkin/relay/internal/core"
	"github.com/dchirkin/relay/internal/domain"
	"github.com/dchirkin/relay/internal/protocol"
)

func testConfig() *config.Config {
	return &config.Config{
		ReadTimeout: 100 * time.Millisecond,
		ReadLimit:   32768,
		SendBuffer:  32,
	}
}

type harness struct {
	registry *core.Registry
	coord    *app.Coordinator
	ln       net.Listener
}

// newHarness starts a loopback listener that runs one handler per accepted
// connection, the same wiring Server.Run does.
func newHarness(t *testing.T) *harness {
	t.Helper()
	registry := core.NewRegistry()
	directory := core.NewDirectory()
	router := core.NewRouter(registry, directory)
	coord := app.NewCoordinator(registry, directory, router, false)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			h := newHandler(conn, coord, testConfig())
			go h.run(ctx)
		}
	}()

	return &harness{registry: registry, coord: coord, ln: ln}
}

type client struct {
	t    *testing.T
	conn net.Conn
}

func (h *harness) dial(t *testing.T) *client {
	t.Helper()
	conn, err := net.Dial("tcp", h.ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn}
}

func (c *client) send(v any) {
	c.t.Helper()
	b, err := json.Marshal(v)
	require.NoError(c.t, err)
	require.NoError(c.t, protocol.WriteFrame(c.conn, b))
}

func (c *client) recv() protocol.Response {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	payload, err := protocol.ReadFrame(c.conn, 32768)
	require.NoError(c.t, err)
	resp, err := protocol.DecodeResponse(payload)
	require.NoError(c.t, err)
	return resp
}

func TestHandlerCreateAndList(t *testing.T) {
	h := newHarness(t)
	cl := h.dial(t)

	cl.send(map[string]any{"type": "CREATE_SERVER", "name": "lobby", "capacity": 2})
	resp := cl.recv()
	require.Equal(t, protocol.TagSuccess, resp.Type)
	require.NotNil(t, resp.Room)
	assert.Equal(t, "lobby", resp.Room.Name)
	assert.Len(t, resp.Room.Members, 1)

	cl.send(map[string]any{"type": "GET_SERVERS"})
	listed := cl.recv()
	require.Equal(t, protocol.TagServerList, listed.Type)
	require.Len(t, listed.Rooms, 1)
	assert.Equal(t, resp.Room.ID, listed.Rooms[0].ID)
	assert.Equal(t, 2, listed.Rooms[0].Capacity)
}

func TestHandlerBroadcastBetweenConnections(t *testing.T) {
	h := newHarness(t)
	alice := h.dial(t)
	bob := h.dial(t)

	alice.send(map[string]any{"type": "CREATE_SERVER", "name": "lobby", "capacity": 2})
	created := alice.recv()
	require.Equal(t, protocol.TagSuccess, created.Type)

	bob.send(map[string]any{"type": "JOIN_SERVER", "room": created.Room.ID})
	joined := bob.recv()
	require.Equal(t, protocol.TagSuccess, joined.Type)

	alice.send(map[string]any{"type": "SEND_MESSAGE", "content": "hi"})
	push := bob.recv()
	assert.Equal(t, protocol.TagSendMessage, push.Type)
	assert.Equal(t, "hi", push.Content)
	require.NotNil(t, push.Author)
}

func TestHandlerRespondsToBadFrame(t *testing.T) {
	h := newHarness(t)
	cl := h.dial(t)

	cl.send(map[string]any{"type": "NO_SUCH_TAG"})
	resp := cl.recv()
	assert.Equal(t, protocol.TagFailure, resp.Type)
	assert.Equal(t, protocol.ReasonUnrecognizedTag, resp.Reason)

	// The connection survives a protocol error.
	cl.send(map[string]any{"type": "GET_SERVERS"})
	assert.Equal(t, protocol.TagServerList, cl.recv().Type)
}

func TestHandlerRespondsToZeroLengthFrame(t *testing.T) {
	h := newHarness(t)
	cl := h.dial(t)

	_, err := cl.conn.Write([]byte{0, 0, 0, 0})
	require.NoError(t, err)

	resp := cl.recv()
	assert.Equal(t, protocol.TagFailure, resp.Type)
	assert.Equal(t, protocol.ReasonMalformedFrame, resp.Reason)

	cl.send(map[string]any{"type": "GET_SERVERS"})
	assert.Equal(t, protocol.TagServerList, cl.recv().Type)
}

func TestHandlerRespondsToOversizeFrame(t *testing.T) {
	h := newHarness(t)
	cl := h.dial(t)

	// Past the 32768-byte read limit.
	require.NoError(t, protocol.WriteFrame(cl.conn, bytes.Repeat([]byte("x"), 40000)))

	resp := cl.recv()
	assert.Equal(t, protocol.TagFailure, resp.Type)
	assert.Equal(t, protocol.ReasonMalformedFrame, resp.Reason)

	cl.send(map[string]any{"type": "GET_SERVERS"})
	assert.Equal(t, protocol.TagServerList, cl.recv().Type)
}

func TestHandlerTrySendAfterClose(t *testing.T) {
	server, peer := net.Pipe()
	t.Cleanup(func() { _ = peer.Close() })

	h := newHandler(server, nil, testConfig())
	go h.writePump()
	h.Close()

	assert.ErrorIs(t, h.TrySend([]byte("x")), protocol.ErrConnectionClosed)
}

func TestHandlerCleansUpOnDisconnect(t *testing.T) {
	h := newHarness(t)
	alice := h.dial(t)
	bob := h.dial(t)

	alice.send(map[string]any{"type": "CREATE_SERVER", "name": "lobby", "capacity": 2})
	created := alice.recv()
	require.Equal(t, protocol.TagSuccess, created.Type)
	roomID := created.Room.ID

	bob.send(map[string]any{"type": "JOIN_SERVER", "room": roomID})
	require.Equal(t, protocol.TagSuccess, bob.recv().Type)

	require.NoError(t, bob.conn.Close())

	// Membership catches up with the disconnect.
	require.Eventually(t, func() bool {
		return h.registry.MemberCount(domain.RoomID(roomID)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// A subsequent broadcast neither errors nor reaches the gone peer.
	alice.send(map[string]any{"type": "SEND_MESSAGE", "content": "still here?"})
	alice.send(map[string]any{"type": "GET_SERVERS"})
	listed := alice.recv()
	require.Equal(t, protocol.TagServerList, listed.Type)
	require.Len(t, listed.Rooms, 1)
	assert.Len(t, listed.Rooms[0].Members, 1)
}

func TestHandlerIdleConnectionSurvivesReadTimeout(t *testing.T) {
	h := newHarness(t)
	cl := h.dial(t)

	// Longer than the handler's read deadline: the timeout must be treated
	// as retry, not teardown.
	time.Sleep(250 * time.Millisecond)

	cl.send(map[string]any{"type": "GET_SERVERS"})
	assert.Equal(t, protocol.TagServerList, cl.recv().Type)
}
