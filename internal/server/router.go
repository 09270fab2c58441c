package server

import (
	"fmt"
	"net"
	"time"

	"bookd/internal/observability"
	"bookd/internal/protocol"
)

// handle routes one decoded request to its handler and builds the
// reply frame. Handlers never panic on purpose; the recover here is
// the backstop that converts anything unanticipated into an error
// reply carrying the same request id.
func (s *Server) handle(req *protocol.Message, from *net.UDPAddr) (reply []byte) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		if r := recover(); r != nil {
			outcome = "panic"
			s.log.Error().
				Interface("panic", r).
				Uint64("req_id", req.RequestID).
				Msg("handler panicked")
			reply = s.reply(req, protocol.FlagError, fmt.Sprintf("Exception: %v", r))
		}
		observability.RecordRequest(protocol.OpName(req.Opcode), outcome, time.Since(start).Seconds())
	}()

	var text string
	var err error
	switch req.Opcode {
	case protocol.OpQuery:
		text, err = s.handleQuery(req)
	case protocol.OpBook:
		text, err = s.handleBook(req)
	case protocol.OpChange:
		text, err = s.handleChange(req)
	case protocol.OpMonitorRegister:
		text, err = s.handleMonitorRegister(req, from)
	case protocol.OpCancel:
		text, err = s.handleCancel(req)
	case protocol.OpExtend:
		text, err = s.handleExtend(req)
	case protocol.OpQueryBooking:
		text, err = s.handleQueryBooking(req)
	default:
		err = errUnknownOp
	}

	if err != nil {
		outcome = "error"
		s.log.Info().
			Str("op", protocol.OpName(req.Opcode)).
			Uint64("req_id", req.RequestID).
			Str("reason", err.Error()).
			Msg("request rejected")
		return s.reply(req, protocol.FlagError, err.Error())
	}
	s.log.Debug().
		Str("op", protocol.OpName(req.Opcode)).
		Uint64("req_id", req.RequestID).
		Msg("request handled")
	return s.reply(req, 0, text)
}

// reply packs a frame that echoes the request's version, semantics,
// opcode and request id; only flags and payload differ.
func (s *Server) reply(req *protocol.Message, flags byte, text string) []byte {
	msg := &protocol.Message{
		Version:   req.Version,
		Semantics: req.Semantics,
		Opcode:    req.Opcode,
		Flags:     flags,
		RequestID: req.RequestID,
		Payload:   protocol.NewWriter().PutString(text).Bytes(),
	}
	data, err := protocol.Pack(msg)
	if err != nil {
		s.log.Error().Err(err).Int("text_len", len(text)).Msg("reply exceeds datagram limit")
		msg.Flags = protocol.FlagError
		msg.Payload = protocol.NewWriter().PutString("Exception: reply exceeds datagram limit").Bytes()
		data, _ = protocol.Pack(msg)
	}
	return data
}
