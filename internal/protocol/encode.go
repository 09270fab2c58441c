package protocol

import "encoding/binary"

// Pack serializes msg into a single datagram buffer.
func Pack(msg *Message) ([]byte, error) {
	if HeaderSize+len(msg.Payload) > MaxDatagram {
		return nil, ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderSize+len(msg.Payload))
	buf[0] = msg.Version
	buf[1] = msg.Semantics
	buf[2] = msg.Opcode
	buf[3] = msg.Flags
	binary.BigEndian.PutUint64(buf[4:12], msg.RequestID)
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(msg.Payload)))
	copy(buf[HeaderSize:], msg.Payload)
	return buf, nil
}
