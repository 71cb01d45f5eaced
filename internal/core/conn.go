package core

// Conn is an outbound sink for one connected client.
// Owned by the adapter; the adapter must Close() it.
type Conn interface {
	// TrySend queues one encoded frame without blocking. It fails when the
	// peer's queue is full or the connection is already closed.
	TrySend([]byte) error
	Close()
}
