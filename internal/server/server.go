// Package server runs the UDP reservation service: one dispatch
// goroutine receives, decodes, routes, mutates the store, fans out
// monitor updates and replies. No two handlers ever run concurrently,
// so the store, subscription registry and reply cache need no locking.
package server

import (
	"context"
	"net"

	"github.com/rs/zerolog"

	"bookd/internal/monitor"
	"bookd/internal/netsim"
	"bookd/internal/observability"
	"bookd/internal/protocol"
	"bookd/internal/semantics"
	"bookd/internal/store"
)

// Options wires the server's collaborators.
type Options struct {
	Semantics byte
	Store     *store.Store
	Dropper   *netsim.Dropper
	Logger    zerolog.Logger
}

type packet struct {
	data []byte
	from *net.UDPAddr
}

type inspection struct {
	fn   func(st *store.Store, reg *monitor.Registry, cache *semantics.ReplyCache)
	done chan struct{}
}

// Server owns the socket and all reservation state.
type Server struct {
	conn  *net.UDPConn
	sem   byte
	store *store.Store
	cache *semantics.ReplyCache
	subs  *monitor.Registry
	drop  *netsim.Dropper
	log   zerolog.Logger

	packets     chan packet
	inspections chan inspection
}

// Listen binds a UDP socket on port and prepares the server.
func Listen(port int, opts Options) (*Server, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4zero, Port: port})
	if err != nil {
		return nil, err
	}
	return &Server{
		conn:        conn,
		sem:         opts.Semantics,
		store:       opts.Store,
		cache:       semantics.NewReplyCache(),
		subs:        monitor.NewRegistry(),
		drop:        opts.Dropper,
		log:         opts.Logger,
		packets:     make(chan packet, 64),
		inspections: make(chan inspection),
	}, nil
}

// Addr returns the bound socket address.
func (s *Server) Addr() *net.UDPAddr {
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// Close unblocks Run.
func (s *Server) Close() error {
	return s.conn.Close()
}

// Run drives the dispatch loop until the socket closes or ctx ends.
func (s *Server) Run(ctx context.Context) error {
	go s.readLoop()
	for {
		select {
		case <-ctx.Done():
			s.conn.Close()
			return ctx.Err()
		case pkt, ok := <-s.packets:
			if !ok {
				return nil
			}
			s.dispatch(pkt)
		case q := <-s.inspections:
			q.fn(s.store, s.subs, s.cache)
			close(q.done)
		}
	}
}

func (s *Server) readLoop() {
	buf := make([]byte, protocol.MaxDatagram)
	for {
		n, from, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			close(s.packets)
			return
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		s.packets <- packet{data: data, from: from}
	}
}

// Inspect runs fn on the dispatch goroutine, between packets. The
// admin HTTP surface reads state through this seam so the dispatch
// loop stays the sole owner of the store.
func (s *Server) Inspect(fn func(st *store.Store, reg *monitor.Registry, cache *semantics.ReplyCache)) {
	q := inspection{fn: fn, done: make(chan struct{})}
	s.inspections <- q
	<-q.done
}

// dispatch applies the configured invocation semantics and routes one
// datagram. Under AMO a replayed request is answered from the reply
// cache without re-executing its handler.
func (s *Server) dispatch(pkt packet) {
	req, err := protocol.Unpack(pkt.data)
	if err != nil {
		s.log.Warn().Err(err).Str("peer", pkt.from.String()).Msg("bad packet")
		return
	}

	if s.sem == protocol.SemAMO {
		key := semantics.ReplyKey{
			Addr:      pkt.from.IP.String(),
			Port:      pkt.from.Port,
			RequestID: req.RequestID,
		}
		if cached, ok := s.cache.Lookup(key); ok {
			s.log.Info().
				Uint64("req_id", req.RequestID).
				Str("peer", pkt.from.String()).
				Msg("amo replay, resending cached reply")
			observability.RecordReplay()
			s.send(pkt.from, cached, "reply")
			return
		}
		reply := s.handle(req, pkt.from)
		s.cache.Store(key, reply)
		observability.SetReplyCacheSize(s.cache.Len())
		s.send(pkt.from, reply, "reply")
		return
	}

	s.send(pkt.from, s.handle(req, pkt.from), "reply")
}

// send transmits one datagram, subject to loss simulation.
func (s *Server) send(addr *net.UDPAddr, data []byte, path string) {
	if s.drop.Drop() {
		s.log.Info().
			Str("path", path).
			Int("bytes", len(data)).
			Str("peer", addr.String()).
			Msg("simulated drop")
		observability.RecordDrop(path)
		return
	}
	if _, err := s.conn.WriteToUDP(data, addr); err != nil {
		s.log.Warn().Err(err).Str("peer", addr.String()).Msg("send failed")
	}
}
