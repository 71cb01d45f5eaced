package domain

import "time"

// Message is one chat message in flight. It exists only for routing; the
// relay keeps no history.
type Message struct {
	Author  Identity
	SentAt  time.Time
	Content string
	Room    RoomID
}

func NewMessage(author Identity, content string, room RoomID) Message {
	return Message{
		Author:  author,
		SentAt:  time.Now().UTC(),
		Content: content,
		Room:    room,
	}
}

// Before orders messages by timestamp. Equal timestamps have no defined
// order.
func (m Message) Before(o Message) bool {
	return m.SentAt.Before(o.SentAt)
}

func (m Message) After(o Message) bool {
	return m.SentAt.After(o.SentAt)
}
