package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dchirkin/relay/internal/core"
	"github.com/dchirkin/relay/internal/domain"
)

// Command tags.
const (
	TagCreateServer = "CREATE_SERVER"
	TagGetServers   = "GET_SERVERS"
	TagJoinServer   = "JOIN_SERVER"
	TagLeaveServer  = "LEAVE_SERVER"
	TagSendMessage  = "SEND_MESSAGE"
)

// Response tags.
const (
	TagSuccess    = "SUCCESS"
	TagFailure    = "FAILURE"
	TagServerList = "SERVER_LIST"
)

type CreatePayload struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Password string `json:"password,omitempty"`
}

type JoinPayload struct {
	Room     string `json:"room"`
	Password string `json:"password,omitempty"`
}

type LeavePayload struct {
	Room string `json:"room"`
}

type SendPayload struct {
	Content string `json:"content"`
}

// Command is one decoded client request. Exactly one payload field matching
// Tag is set.
type Command struct {
	Tag    string
	Create *CreatePayload
	Join   *JoinPayload
	Leave  *LeavePayload
	Send   *SendPayload
}

// DecodeCommand parses one frame payload. An undecodable envelope or payload
// is ErrMalformedFrame; a well-formed envelope with an unknown tag is
// ErrUnrecognizedTag. Never silently drops anything.
func DecodeCommand(data []byte) (Command, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	cmd := Command{Tag: env.Type}
	switch env.Type {
	case TagCreateServer:
		var p CreatePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Command{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if p.Name == "" {
			return Command{}, fmt.Errorf("%w: missing name", ErrMalformedFrame)
		}
		cmd.Create = &p
	case TagGetServers:
		// No payload.
	case TagJoinServer:
		var p JoinPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Command{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if p.Room == "" {
			return Command{}, fmt.Errorf("%w: missing room", ErrMalformedFrame)
		}
		cmd.Join = &p
	case TagLeaveServer:
		var p LeavePayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Command{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if p.Room == "" {
			return Command{}, fmt.Errorf("%w: missing room", ErrMalformedFrame)
		}
		cmd.Leave = &p
	case TagSendMessage:
		var p SendPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return Command{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		cmd.Send = &p
	case "":
		return Command{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnrecognizedTag, env.Type)
	}
	return cmd, nil
}

// Endpoint is the wire form of an Identity.
type Endpoint struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func EndpointOf(id domain.Identity) Endpoint {
	return Endpoint{Host: id.Host, Port: id.Port}
}

func (e Endpoint) Identity() domain.Identity {
	return domain.Identity{Host: e.Host, Port: e.Port}
}

// RoomDescriptor is the wire form of a room: plain fields only, password
// replaced by a presence flag.
type RoomDescriptor struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Capacity  int        `json:"capacity"`
	Protected bool       `json:"protected"`
	Owner     Endpoint   `json:"owner"`
	Members   []Endpoint `json:"members"`
}

// DescriptorFor converts a registry snapshot to its wire form.
func DescriptorFor(snap core.RoomSnapshot) RoomDescriptor {
	members := make([]Endpoint, 0, len(snap.Members))
	for _, m := range snap.Members {
		members = append(members, EndpointOf(m))
	}
	return RoomDescriptor{
		ID:        string(snap.Room.ID),
		Name:      snap.Room.Name,
		Capacity:  snap.Room.Capacity,
		Protected: snap.Room.Protected(),
		Owner:     EndpointOf(snap.Room.Owner),
		Members:   members,
	}
}

// Response is the decoded form of any server-to-client frame. Used by
// clients and tests; the server encodes responses directly.
type Response struct {
	Type   string           `json:"type"`
	Reason Reason           `json:"reason,omitempty"`
	Room   *RoomDescriptor  `json:"room,omitempty"`
	Rooms  []RoomDescriptor `json:"rooms,omitempty"`

	// SEND_MESSAGE push fields.
	Author  *Endpoint `json:"author,omitempty"`
	Content string    `json:"content,omitempty"`
	SentAt  time.Time `json:"sent_at,omitzero"`
}

func DecodeResponse(data []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if resp.Type == "" {
		return Response{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return resp, nil
}

// EncodeSuccess builds a SUCCESS response, optionally carrying the room the
// operation produced or joined.
func EncodeSuccess(room *RoomDescriptor) []byte {
	return mustMarshal(Response{Type: TagSuccess, Room: room})
}

func EncodeFailure(reason Reason) []byte {
	return mustMarshal(Response{Type: TagFailure, Reason: reason})
}

func EncodeServerList(rooms []RoomDescriptor) []byte {
	if rooms == nil {
		rooms = []RoomDescriptor{}
	}
	return mustMarshal(struct {
		Type  string           `json:"type"`
		Rooms []RoomDescriptor `json:"rooms"`
	}{Type: TagServerList, Rooms: rooms})
}

// EncodeMessagePush builds the unsolicited SEND_MESSAGE frame delivered to
// room members.
func EncodeMessagePush(msg domain.Message) []byte {
	author := EndpointOf(msg.Author)
	return mustMarshal(Response{
		Type:    TagSendMessage,
		Author:  &author,
		Content: msg.Content,
		SentAt:  msg.SentAt,
	})
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// All response types marshal by construction.
		panic(err)
	}
	return b
}
