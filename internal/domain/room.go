package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxRoomNameLen = 36

var (
	ErrRoomNameEmpty   = errors.New("room name empty")
	ErrRoomNameTooLong = errors.New("room name too long")
	ErrBadCapacity     = errors.New("capacity must be positive")
)

type RoomID string

// Room is a named chat group. The owner is fixed at creation. Membership
// lives in the registry, not here.
type Room struct {
	ID       RoomID
	Owner    Identity
	Name     string
	Capacity int
	Password string
}

// NewRoom validates the metadata and assigns a fresh id.
func NewRoom(owner Identity, name string, capacity int, password string) (*Room, error) {
	if len(name) == 0 {
		return nil, ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLen {
		return nil, ErrRoomNameTooLong
	}
	if capacity <= 0 {
		return nil, ErrBadCapacity
	}
	return &Room{
		ID:       RoomID(uuid.NewString()),
		Owner:    owner,
		Name:     name,
		Capacity: capacity,
		Password: password,
	}, nil
}

// Protected reports whether joining requires a password.
func (r *Room) Protected() bool {
	return r.Password != ""
}
