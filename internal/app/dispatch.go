package app

import (
	"github.com/rs/zerolog/log"

	"github.com/dchirkin/relay/internal/domain"
	"github.com/dchirkin/relay/internal/protocol"
)

// HandleFrame decodes one inbound frame payload, executes the command and
// sends any response through the sender's registered sink. Every protocol
// violation gets an explicit FAILURE back; nothing is silently dropped.
// Responses and pushes share the per-connection sink, so each peer sees
// them in send order.
func (c *Coordinator) HandleFrame(id domain.Identity, payload []byte) {
	cmd, err := protocol.DecodeCommand(payload)
	if err != nil {
		log.Warn().Str("module", "app.dispatch").Str("id", id.String()).Err(err).Msg("bad frame")
		c.respond(id, protocol.EncodeFailure(protocol.ReasonOf(err)))
		return
	}

	switch cmd.Tag {
	case protocol.TagCreateServer:
		snap, err := c.CreateRoom(id, cmd.Create.Name, cmd.Create.Capacity, cmd.Create.Password)
		if err != nil {
			c.respond(id, protocol.EncodeFailure(protocol.ReasonOf(err)))
			return
		}
		desc := protocol.DescriptorFor(snap)
		c.respond(id, protocol.EncodeSuccess(&desc))

	case protocol.TagGetServers:
		snaps := c.Rooms()
		descs := make([]protocol.RoomDescriptor, 0, len(snaps))
		for _, snap := range snaps {
			descs = append(descs, protocol.DescriptorFor(snap))
		}
		c.respond(id, protocol.EncodeServerList(descs))

	case protocol.TagJoinServer:
		snap, err := c.JoinRoom(id, domain.RoomID(cmd.Join.Room), cmd.Join.Password)
		if err != nil {
			c.respond(id, protocol.EncodeFailure(protocol.ReasonOf(err)))
			return
		}
		desc := protocol.DescriptorFor(snap)
		c.respond(id, protocol.EncodeSuccess(&desc))

	case protocol.TagLeaveServer:
		if err := c.LeaveRoom(id, domain.RoomID(cmd.Leave.Room)); err != nil {
			c.respond(id, protocol.EncodeFailure(protocol.ReasonOf(err)))
			return
		}
		c.respond(id, protocol.EncodeSuccess(nil))

	case protocol.TagSendMessage:
		// Fire-and-forget: no response on success.
		if _, err := c.Send(id, cmd.Send.Content); err != nil {
			c.respond(id, protocol.EncodeFailure(protocol.ReasonOf(err)))
		}
	}
}

func (c *Coordinator) respond(id domain.Identity, frame []byte) {
	conn, err := c.directory.HandleFor(id)
	if err != nil {
		// Sender raced with its own disconnect; nowhere to respond.
		log.Debug().Str("module", "app.dispatch").Str("id", id.String()).Msg("response dropped, sender gone")
		return
	}
	if err := conn.TrySend(frame); err != nil {
		log.Warn().Str("module", "app.dispatch").Str("id", id.String()).Err(err).Msg("response dropped")
	}
}
