// Package client implements the request/reply side of the protocol:
// fingerprint each logical request with a fresh id, transmit, and
// retransmit the identical bytes on timeout until a matching reply
// arrives or the retry budget runs out.
package client

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"bookd/internal/netsim"
	"bookd/internal/protocol"
	"bookd/internal/semantics"
)

// ErrNoReply is returned once every retry has timed out.
var ErrNoReply = errors.New("client: no reply after retries")

const (
	replyTimeout = time.Second
	maxTries     = 8
)

// Reply is a decoded server response. IsError mirrors the frame's
// error flag; Text is the single string payload.
type Reply struct {
	Text    string
	IsError bool
}

// Client is a synchronous single-threaded requester over one UDP
// socket.
type Client struct {
	conn    *net.UDPConn
	server  *net.UDPAddr
	sem     byte
	drop    *netsim.Dropper
	log     zerolog.Logger
	timeout time.Duration
	tries   int
}

// Dial resolves the server address and binds a local socket.
func Dial(host string, port int, sem byte, drop *netsim.Dropper, logger zerolog.Logger) (*Client, error) {
	server, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("client: resolve server: %w", err)
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, fmt.Errorf("client: bind socket: %w", err)
	}
	return &Client{
		conn:    conn,
		server:  server,
		sem:     sem,
		drop:    drop,
		log:     logger,
		timeout: replyTimeout,
		tries:   maxTries,
	}, nil
}

func (c *Client) Close() error { return c.conn.Close() }

// roundTrip sends one request and waits for its reply. Each attempt
// waits up to one second; stray datagrams (unmatched request ids,
// unsolicited monitor updates) are discarded without consuming the
// attempt's remaining wait.
func (c *Client) roundTrip(op byte, payload []byte) (*Reply, error) {
	reqID := semantics.NextRequestID()
	data, err := protocol.Pack(&protocol.Message{
		Version:   protocol.Version,
		Semantics: c.sem,
		Opcode:    op,
		RequestID: reqID,
		Payload:   payload,
	})
	if err != nil {
		return nil, err
	}

	buf := make([]byte, protocol.MaxDatagram)
	for try := 1; try <= c.tries; try++ {
		c.send(data)

		deadline := time.Now().Add(c.timeout)
		for {
			if err := c.conn.SetReadDeadline(deadline); err != nil {
				return nil, err
			}
			n, _, err := c.conn.ReadFromUDP(buf)
			if err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					c.log.Info().Int("try", try).Msg("timeout, retrying")
					break
				}
				return nil, err
			}
			msg, err := protocol.Unpack(buf[:n])
			if err != nil {
				// Malformed datagram: ignore and keep waiting.
				continue
			}
			if msg.RequestID != reqID || msg.Opcode == protocol.OpMonitorUpdate {
				continue
			}
			text, err := protocol.NewReader(msg.Payload).String()
			if err != nil {
				continue
			}
			return &Reply{Text: text, IsError: msg.IsError()}, nil
		}
	}
	return nil, fmt.Errorf("%w (%d tries)", ErrNoReply, c.tries)
}

// send transmits the request bytes, subject to loss simulation.
func (c *Client) send(data []byte) {
	if c.drop.Drop() {
		c.log.Info().Int("bytes", len(data)).Msg("simulated drop of request")
		return
	}
	if _, err := c.conn.WriteToUDP(data, c.server); err != nil {
		c.log.Warn().Err(err).Msg("send failed")
	}
}
