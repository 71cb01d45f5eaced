package core

import (
	"github.com/rs/zerolog/log"

	"github.com/dchirkin/relay/internal/domain"
)

// PublishResult reports fan-out stats for one broadcast.
type PublishResult struct {
	SentTo  int
	Dropped []domain.Identity
}

// Router fans a frame out to every member of the sender's room except the
// sender. Delivery is best-effort, at-most-once: a recipient that vanished
// or cannot accept the frame is skipped, never aborting the rest.
type Router struct {
	registry  *Registry
	directory *Directory
}

func NewRouter(registry *Registry, directory *Directory) *Router {
	return &Router{registry: registry, directory: directory}
}

// Broadcast delivers data to the other members of the sender's current
// room. Fails with ErrNotInRoom when the sender occupies no room.
func (r *Router) Broadcast(sender domain.Identity, data []byte) (PublishResult, error) {
	roomID, ok := r.directory.RoomOf(sender)
	if !ok {
		return PublishResult{}, ErrNotInRoom
	}
	members, ok := r.registry.Members(roomID)
	if !ok {
		return PublishResult{}, ErrUnknownRoom
	}

	res := PublishResult{}
	for _, m := range members {
		if m == sender {
			continue
		}
		conn, err := r.directory.HandleFor(m)
		if err != nil {
			// Recipient raced with disconnect; skip.
			res.Dropped = append(res.Dropped, m)
			continue
		}
		if err := conn.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SentTo++
	}

	log.Debug().Str("module", "core.router").Str("from", sender.String()).Str("room", string(roomID)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res, nil
}
