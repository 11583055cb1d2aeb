package message

import (
	"fmt"
	"math/bits"
)

// Type identifies the kind of a message. Every kind is one bit so that a
// set of kinds fits in a single receive mask byte.
type Type uint8

const (
	TypeCarInfo          Type = 1 << 0
	TypeGear             Type = 1 << 1
	TypeBTInfo           Type = 1 << 2
	TypeBTSkip           Type = 1 << 3
	TypeOEMDisplay       Type = 1 << 4
	TypeReverseProximity Type = 1 << 5
	TypeBTDevices        Type = 1 << 6
	TypeAccessory        Type = 1 << 7

	// AllTypes is the receive mask accepting everything.
	AllTypes Type = 0xFF
)

// NumTypes is the number of distinct message kinds.
const NumTypes = 8

// Valid reports whether t names exactly one kind.
func (t Type) Valid() bool {
	return t != 0 && t&(t-1) == 0
}

// Index returns the bit position of a valid type, 0..NumTypes-1.
func (t Type) Index() int {
	return bits.TrailingZeros8(uint8(t))
}

func (t Type) String() string {
	switch t {
	case TypeCarInfo:
		return "CarInfo"
	case TypeGear:
		return "Gear"
	case TypeBTInfo:
		return "BTInfo"
	case TypeBTSkip:
		return "BTSkip"
	case TypeOEMDisplay:
		return "OEMDisplay"
	case TypeReverseProximity:
		return "ReverseProximity"
	case TypeBTDevices:
		return "BTDevices"
	case TypeAccessory:
		return "Accessory"
	default:
		return fmt.Sprintf("Type(0x%02x)", uint8(t))
	}
}

// ParseType maps a kind name as printed by String back to its flag.
func ParseType(s string) (Type, error) {
	for i := 0; i < NumTypes; i++ {
		t := Type(1 << i)
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown message type %q", s)
}
