package message

import "errors"

var (
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrShortDatagram   = errors.New("datagram shorter than header")
	ErrBadMarker       = errors.New("bad marker byte")
	ErrInvalidType     = errors.New("type is not a single message kind")
	ErrShortPayload    = errors.New("payload too short for message kind")
	ErrUnknownOp       = errors.New("unknown operation")
)
