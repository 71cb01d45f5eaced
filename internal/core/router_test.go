package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dchirkin/relay/internal/domain"
)

// wires a room with the given members, each backed by a fake sink.
func setupRoom(t *testing.T, members ...domain.Identity) (*Registry, *Directory, domain.RoomID, map[domain.Identity]*fakeConn) {
	t.Helper()
	reg := NewRegistry()
	dir := NewDirectory()

	room, err := reg.Create(members[0], "lobby", len(members), "")
	require.NoError(t, err)

	conns := make(map[domain.Identity]*fakeConn, len(members))
	for _, m := range members {
		conn := &fakeConn{}
		conns[m] = conn
		dir.Register(m, conn)
		require.NoError(t, reg.Join(room.ID, m, ""))
		require.True(t, dir.SetRoom(m, room.ID))
	}
	return reg, dir, room.ID, conns
}

func TestBroadcastFanOut(t *testing.T) {
	a, b, c := ident(1), ident(2), ident(3)
	reg, dir, _, conns := setupRoom(t, a, b, c)
	router := NewRouter(reg, dir)

	res, err := router.Broadcast(a, []byte("hi"))
	require.NoError(t, err)

	assert.Equal(t, 2, res.SentTo)
	assert.Empty(t, res.Dropped)
	assert.Empty(t, conns[a].sent(), "sender must not receive its own message")
	require.Len(t, conns[b].sent(), 1)
	require.Len(t, conns[c].sent(), 1)
	assert.Equal(t, "hi", string(conns[b].sent()[0]))
}

func TestBroadcastNotInRoom(t *testing.T) {
	reg := NewRegistry()
	dir := NewDirectory()
	dir.Register(ident(1), &fakeConn{})
	router := NewRouter(reg, dir)

	_, err := router.Broadcast(ident(1), []byte("hi"))
	assert.ErrorIs(t, err, ErrNotInRoom)
}

func TestBroadcastSkipsVanishedRecipient(t *testing.T) {
	a, b, c := ident(1), ident(2), ident(3)
	reg, dir, _, conns := setupRoom(t, a, b, c)
	router := NewRouter(reg, dir)

	// c disconnected but is still in the member list: the lookup miss is a
	// soft failure and must not abort delivery to b.
	dir.Unregister(c)

	res, err := router.Broadcast(a, []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.SentTo)
	assert.Equal(t, []domain.Identity{c}, res.Dropped)
	assert.Len(t, conns[b].sent(), 1)
	assert.Empty(t, conns[c].sent())
}

func TestBroadcastSkipsRejectedSend(t *testing.T) {
	a, b, c := ident(1), ident(2), ident(3)
	reg, dir, _, conns := setupRoom(t, a, b, c)
	router := NewRouter(reg, dir)

	conns[b].fail = true

	res, err := router.Broadcast(a, []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.SentTo)
	assert.Equal(t, []domain.Identity{b}, res.Dropped)
	assert.Len(t, conns[c].sent(), 1)
}
