package client

import (
	"errors"
	"net"
	"time"

	"bookd/internal/protocol"
)

// Listen receives monitor updates on the client socket for the given
// window plus a one-second grace period, invoking onUpdate for each.
// Read timeouts inside the window are expected (there may simply be no
// updates) and swallowed. Delivery is best-effort; updates are never
// acknowledged or retransmitted.
func (c *Client) Listen(window time.Duration, onUpdate func(facility, text string)) error {
	end := time.Now().Add(window + time.Second)
	buf := make([]byte, protocol.MaxDatagram)
	for time.Now().Before(end) {
		if err := c.conn.SetReadDeadline(time.Now().Add(replyTimeout)); err != nil {
			return err
		}
		n, _, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return err
		}
		msg, err := protocol.Unpack(buf[:n])
		if err != nil || msg.Opcode != protocol.OpMonitorUpdate {
			continue
		}
		r := protocol.NewReader(msg.Payload)
		facility, err := r.String()
		if err != nil {
			continue
		}
		text, err := r.String()
		if err != nil {
			continue
		}
		onUpdate(facility, text)
	}
	return nil
}
