package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoom(t *testing.T) {
	owner := Identity{Host: "10.0.0.7", Port: 2422}

	room, err := NewRoom(owner, "lobby", 2, "")
	require.NoError(t, err)
	assert.NotEmpty(t, room.ID)
	assert.Equal(t, owner, room.Owner)
	assert.Equal(t, "lobby", room.Name)
	assert.Equal(t, 2, room.Capacity)
	assert.False(t, room.Protected())

	locked, err := NewRoom(owner, "vault", 2, "hunter2")
	require.NoError(t, err)
	assert.True(t, locked.Protected())
	assert.NotEqual(t, room.ID, locked.ID)
}

func TestNewRoomValidation(t *testing.T) {
	owner := Identity{Host: "10.0.0.7", Port: 2422}

	_, err := NewRoom(owner, "", 2, "")
	assert.ErrorIs(t, err, ErrRoomNameEmpty)

	_, err = NewRoom(owner, strings.Repeat("x", MaxRoomNameLen+1), 2, "")
	assert.ErrorIs(t, err, ErrRoomNameTooLong)

	_, err = NewRoom(owner, "lobby", 0, "")
	assert.ErrorIs(t, err, ErrBadCapacity)
}

func TestMessageOrdering(t *testing.T) {
	author := Identity{Host: "10.0.0.7", Port: 2422}
	earlier := Message{Author: author, SentAt: time.Unix(100, 0), Content: "a"}
	later := Message{Author: author, SentAt: time.Unix(200, 0), Content: "b"}

	assert.True(t, earlier.Before(later))
	assert.True(t, later.After(earlier))
	assert.False(t, later.Before(earlier))
}
