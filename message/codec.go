package message

// Datagram layout:
//
//	[0]   Marker
//	[1]   Type
//	[2:]  payload, at most MaxPayloadSize bytes
const (
	Marker          = 0xFB
	HeaderSize      = 2
	MaxDatagramSize = 250
	MaxPayloadSize  = MaxDatagramSize - HeaderSize
)

// Encode frames payload as a datagram of type t.
func Encode(t Type, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}

	b := make([]byte, HeaderSize+len(payload))
	b[0] = Marker
	b[1] = byte(t)
	copy(b[HeaderSize:], payload)
	return b, nil
}

// Decode splits a datagram into its type and payload. The payload aliases b.
func Decode(b []byte) (Type, []byte, error) {
	if len(b) < HeaderSize {
		return 0, nil, ErrShortDatagram
	}
	if b[0] != Marker {
		return 0, nil, ErrBadMarker
	}
	return Type(b[1]), b[HeaderSize:], nil
}
