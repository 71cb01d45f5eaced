// Package tcp serves the relay protocol over plain TCP: one goroutine per
// accepted connection running a read-dispatch loop.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/dchirkin/relay/internal/app"
	"github.com/dchirkin/relay/internal/config"
)

type Server struct {
	cfg   *config.Config
	coord *app.Coordinator
}

func NewServer(cfg *config.Config, coord *app.Coordinator) *Server {
	return &Server{cfg: cfg, coord: coord}
}

// Run listens on the configured address and accepts until ctx is canceled.
// Handler failures never reach the accept loop; each connection fails alone.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	log.Info().Str("module", "adapters.tcp").Str("addr", ln.Addr().String()).Msg("relay listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Error().Str("module", "adapters.tcp").Err(err).Msg("accept error")
			continue
		}
		h := newHandler(conn, s.coord, s.cfg)
		go h.run(ctx)
	}
}
