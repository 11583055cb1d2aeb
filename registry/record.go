package registry

import (
	"fmt"

	"github.com/retrofit-labs/carcomms"
)

// Persisted layout, RecordSize bytes:
//
//	addrs      MaxDevices x 6
//	names      MaxDevices x NameSize, NUL padded
//	count      1
//	favourite  1, noFavourite when unset
//	connected  6, all zero when unset
const (
	MaxDevices = 5
	NameSize   = 32
	RecordSize = MaxDevices*6 + MaxDevices*NameSize + 1 + 1 + 6

	noFavourite = 0xFF
)

type record struct {
	devices   [MaxDevices]Device
	count     int
	favourite int
	connected carcomms.Addr
}

func emptyRecord() record {
	return record{favourite: -1}
}

func (r *record) indexOf(a carcomms.Addr) int {
	for i := 0; i < r.count; i++ {
		if r.devices[i].Addr == a {
			return i
		}
	}
	return -1
}

func (r *record) marshal() []byte {
	b := make([]byte, RecordSize)
	off := 0
	for _, d := range r.devices {
		copy(b[off:], d.Addr[:])
		off += 6
	}
	for _, d := range r.devices {
		copy(b[off:off+NameSize-1], d.Name)
		off += NameSize
	}
	b[off] = byte(r.count)
	off++
	if r.favourite < 0 {
		b[off] = noFavourite
	} else {
		b[off] = byte(r.favourite)
	}
	off++
	copy(b[off:], r.connected[:])
	return b
}

func unmarshalRecord(b []byte) (record, error) {
	r := emptyRecord()
	if len(b) != RecordSize {
		return r, fmt.Errorf("record is %d bytes, want %d", len(b), RecordSize)
	}

	off := 0
	for i := range r.devices {
		copy(r.devices[i].Addr[:], b[off:off+6])
		off += 6
	}
	for i := range r.devices {
		r.devices[i].Name = cString(b[off : off+NameSize])
		off += NameSize
	}

	r.count = int(b[off])
	off++
	if r.count > MaxDevices {
		return emptyRecord(), fmt.Errorf("record holds %d devices, max %d", r.count, MaxDevices)
	}

	if fav := int(b[off]); fav < r.count {
		r.favourite = fav
	}
	off++

	copy(r.connected[:], b[off:off+6])
	if r.indexOf(r.connected) < 0 {
		r.connected = carcomms.Addr{}
	}

	// slots past count are inert and kept as stored
	return r, nil
}

func (r *record) snapshot() Snapshot {
	return Snapshot{
		Devices:   append([]Device(nil), r.devices[:r.count]...),
		Favourite: r.favourite,
		Connected: r.connected,
	}
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// truncName limits n to what fits in a name slot with its terminator.
func truncName(n string) string {
	if len(n) > NameSize-1 {
		return n[:NameSize-1]
	}
	return n
}
