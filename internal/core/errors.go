package core

import "errors"

var (
	ErrRoomFull        = errors.New("room is full")
	ErrNotMember       = errors.New("not a member of room")
	ErrNotInRoom       = errors.New("not in a room")
	ErrUnknownIdentity = errors.New("unknown identity")
	ErrUnknownRoom     = errors.New("unknown room")
	ErrBadPassword     = errors.New("bad password")
)
