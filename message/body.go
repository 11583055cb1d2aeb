package message

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Body is the decoded payload of one message kind.
type Body interface {
	Type() Type
	MarshalBinary() ([]byte, error)
}

// Parse decodes payload according to t.
func Parse(t Type, payload []byte) (Body, error) {
	var (
		b   Body
		err error
	)

	switch t {
	case TypeCarInfo:
		b, err = parseCarInfo(payload)
	case TypeGear:
		b, err = parseGear(payload)
	case TypeBTInfo:
		b, err = parseTrackInfo(payload)
	case TypeBTSkip:
		b, err = parseSkip(payload)
	case TypeOEMDisplay:
		b, err = parseDisplayText(payload)
	case TypeReverseProximity:
		b, err = parseProximity(payload)
	case TypeBTDevices:
		b, err = parseDevices(payload)
	case TypeAccessory:
		b, err = parseAccessory(payload)
	default:
		return nil, ErrInvalidType
	}

	return b, errors.Wrapf(err, "can't parse %v", t)
}

// Marshal encodes a body as a complete datagram.
func Marshal(b Body) ([]byte, error) {
	p, err := b.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return Encode(b.Type(), p)
}

func need(p []byte, n int) error {
	if len(p) < n {
		return ErrShortPayload
	}
	return nil
}

// writer appends little-endian fixed width fields.
type writer struct {
	b []byte
}

func (w *writer) u8(v uint8)   { w.b = append(w.b, v) }
func (w *writer) u16(v uint16) { w.b = binary.LittleEndian.AppendUint16(w.b, v) }
func (w *writer) u32(v uint32) { w.b = binary.LittleEndian.AppendUint32(w.b, v) }
func (w *writer) f32(v float32) {
	w.u32(math.Float32bits(v))
}
func (w *writer) bytes(v []byte) { w.b = append(w.b, v...) }

// str writes s into a NUL padded field of n bytes, truncating to keep a terminator.
func (w *writer) str(s string, n int) {
	f := make([]byte, n)
	copy(f[:n-1], s)
	w.b = append(w.b, f...)
}

// reader consumes fields written by writer. Callers check the length up front.
type reader struct {
	b   []byte
	pos int
}

func (r *reader) u8() uint8 {
	v := r.b[r.pos]
	r.pos++
	return v
}

func (r *reader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.b[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.b[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *reader) bytes(n int) []byte {
	v := r.b[r.pos : r.pos+n]
	r.pos += n
	return v
}

func (r *reader) str(n int) string {
	return cString(r.bytes(n))
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
