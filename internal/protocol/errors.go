package protocol

import "errors"

var (
	ErrShortHeader     = errors.New("protocol: short header")
	ErrBadLength       = errors.New("protocol: bad payload length")
	ErrTruncated       = errors.New("protocol: truncated data")
	ErrInvalidString   = errors.New("protocol: string is not valid utf-8")
	ErrPayloadTooLarge = errors.New("protocol: payload exceeds max datagram")
)
