package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dchirkin/relay/internal/app"
	"github.com/dchirkin/relay/internal/config"
	"github.com/dchirkin/relay/internal/domain"
	"github.com/dchirkin/relay/internal/protocol"
)

const writeWait = 5 * time.Second

// handler owns one accepted connection: a read loop decoding frames and a
// write pump draining the outbound queue. It implements core.Conn so the
// directory can route frames back to this peer.
type handler struct {
	conn  net.Conn
	coord *app.Coordinator

	readTimeout time.Duration
	readLimit   int

	send      chan []byte
	writeDone chan struct{}

	mu     sync.RWMutex
	closed bool
}

func newHandler(conn net.Conn, coord *app.Coordinator, cfg *config.Config) *handler {
	return &handler{
		conn:        conn,
		coord:       coord,
		readTimeout: cfg.ReadTimeout,
		readLimit:   cfg.ReadLimit,
		send:        make(chan []byte, cfg.SendBuffer),
		writeDone:   make(chan struct{}),
	}
}

// TrySend queues one frame payload without blocking.
func (h *handler) TrySend(data []byte) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return protocol.ErrConnectionClosed
	}
	select {
	case h.send <- data:
		return nil
	default:
		return errors.New("backpressure")
	}
}

// Close stops the queue, lets the write pump flush what it holds, then
// closes the socket. Must not be called before writePump is running.
func (h *handler) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.send)
	h.mu.Unlock()
	<-h.writeDone
	_ = h.conn.Close()
}

func (h *handler) run(ctx context.Context) {
	id, err := domain.IdentityFromAddr(h.conn.RemoteAddr())
	if err != nil {
		log.Error().Str("module", "adapters.tcp").Err(err).Msg("rejecting connection with unusable peer address")
		_ = h.conn.Close()
		return
	}

	log.Info().Str("module", "adapters.tcp").Str("id", id.String()).Msg("connection accepted")

	h.coord.Connect(id, h)
	go h.writePump()

	defer func() {
		h.coord.Disconnect(id)
		h.Close()
		log.Info().Str("module", "adapters.tcp").Str("id", id.String()).Msg("connection closed")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if h.readTimeout > 0 {
			_ = h.conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		}
		payload, err := protocol.ReadFrame(h.conn, h.readLimit)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				// Idle peer; keep waiting.
				continue
			}
			if errors.Is(err, protocol.ErrFrameTooLarge) || errors.Is(err, protocol.ErrMalformedFrame) {
				// ReadFrame left the stream at the next length
				// prefix, so the peer stays connected.
				_ = h.TrySend(protocol.EncodeFailure(protocol.ReasonOf(err)))
				continue
			}
			if !errors.Is(err, io.EOF) {
				log.Warn().Str("module", "adapters.tcp").Str("id", id.String()).Err(err).Msg("read error")
			}
			return
		}

		h.coord.HandleFrame(id, payload)
	}
}

// writePump serializes all outbound frames for this connection.
func (h *handler) writePump() {
	defer close(h.writeDone)
	for data := range h.send {
		_ = h.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := protocol.WriteFrame(h.conn, data); err != nil {
			log.Warn().Str("module", "adapters.tcp").Err(err).Msg("write error")
			return
		}
	}
}
