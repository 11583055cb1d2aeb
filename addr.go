package carcomms

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Addr is a 6 byte hardware address, used both for radio peers and
// bluetooth devices. The zero value means "no address".
type Addr [6]byte

// BroadcastAddr is the all-ones radio peer every node listens on.
var BroadcastAddr = Addr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ParseAddr accepts "aa:bb:cc:dd:ee:ff", "aa-bb-cc-dd-ee-ff" or "aabbccddeeff".
func ParseAddr(s string) (Addr, error) {
	var a Addr

	hexStr := strings.NewReplacer(":", "", "-", "").Replace(s)
	if len(hexStr) != 2*len(a) {
		return a, fmt.Errorf("invalid address %q", s)
	}

	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %v", s, err)
	}

	copy(a[:], b)
	return a, nil
}

// MustParseAddr is like ParseAddr but panics on error.
func MustParseAddr(s string) Addr {
	a, err := ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Addr) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", a[0], a[1], a[2], a[3], a[4], a[5])
}

func (a Addr) Bytes() []byte {
	return append([]byte(nil), a[:]...)
}

func (a Addr) IsZero() bool {
	return a == Addr{}
}
