package protocol

import "encoding/binary"

// Unpack parses one datagram. The payload length must account for every
// byte after the header; shorter or longer datagrams are malformed.
func Unpack(data []byte) (*Message, error) {
	if len(data) < HeaderSize {
		return nil, ErrShortHeader
	}
	payloadLen := int32(binary.BigEndian.Uint32(data[12:16]))
	if payloadLen < 0 {
		return nil, ErrBadLength
	}
	remaining := len(data) - HeaderSize
	if int(payloadLen) > remaining {
		return nil, ErrTruncated
	}
	if int(payloadLen) < remaining {
		return nil, ErrBadLength
	}
	msg := &Message{
		Version:   data[0],
		Semantics: data[1],
		Opcode:    data[2],
		Flags:     data[3],
		RequestID: binary.BigEndian.Uint64(data[4:12]),
	}
	if payloadLen > 0 {
		msg.Payload = make([]byte, payloadLen)
		copy(msg.Payload, data[HeaderSize:])
	}
	return msg, nil
}
