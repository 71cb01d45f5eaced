package protocol

import (
	"errors"

	"github.com/dchirkin/relay/internal/core"
	"github.com/dchirkin/relay/internal/domain"
)

var (
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrUnrecognizedTag  = errors.New("unrecognized tag")
	ErrFrameTooLarge    = errors.New("frame too large")
	ErrConnectionClosed = errors.New("connection closed")
)

// Reason is a protocol-level failure code carried in FAILURE responses.
type Reason string

const (
	ReasonRoomFull         Reason = "ROOM_FULL"
	ReasonNotMember        Reason = "NOT_MEMBER"
	ReasonNotInRoom        Reason = "NOT_IN_ROOM"
	ReasonUnknownIdentity  Reason = "UNKNOWN_IDENTITY"
	ReasonUnknownRoom      Reason = "UNKNOWN_ROOM"
	ReasonBadPassword      Reason = "BAD_PASSWORD"
	ReasonMalformedFrame   Reason = "MALFORMED_FRAME"
	ReasonUnrecognizedTag  Reason = "UNRECOGNIZED_TAG"
	ReasonConnectionClosed Reason = "CONNECTION_CLOSED"
	ReasonInternal         Reason = "INTERNAL"
)

// ReasonOf maps an error to its wire code. Unmapped errors are reported as
// INTERNAL rather than leaking their text to the peer.
func ReasonOf(err error) Reason {
	switch {
	case errors.Is(err, core.ErrRoomFull):
		return ReasonRoomFull
	case errors.Is(err, core.ErrNotMember):
		return ReasonNotMember
	case errors.Is(err, core.ErrNotInRoom):
		return ReasonNotInRoom
	case errors.Is(err, core.ErrUnknownIdentity):
		return ReasonUnknownIdentity
	case errors.Is(err, core.ErrUnknownRoom):
		return ReasonUnknownRoom
	case errors.Is(err, core.ErrBadPassword):
		return ReasonBadPassword
	case errors.Is(err, ErrUnrecognizedTag):
		return ReasonUnrecognizedTag
	case errors.Is(err, ErrMalformedFrame), errors.Is(err, ErrFrameTooLarge),
		errors.Is(err, domain.ErrRoomNameEmpty), errors.Is(err, domain.ErrRoomNameTooLong),
		errors.Is(err, domain.ErrBadCapacity):
		return ReasonMalformedFrame
	case errors.Is(err, ErrConnectionClosed):
		return ReasonConnectionClosed
	default:
		return ReasonInternal
	}
}
