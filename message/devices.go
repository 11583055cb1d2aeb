package message

import (
	"fmt"

	"github.com/retrofit-labs/carcomms"
)

// DeviceOp is the first payload byte of a BTDevices message.
type DeviceOp uint8

const (
	OpList DeviceOp = iota + 1
	OpConnected
	OpDisconnected
	OpConnect
	OpDisconnect
	OpReconnect
	OpFavourite
	OpDelete
	OpMoveUp
	OpMoveDown
	OpRequestList
)

func (o DeviceOp) String() string {
	switch o {
	case OpList:
		return "list"
	case OpConnected:
		return "connected"
	case OpDisconnected:
		return "disconnected"
	case OpConnect:
		return "connect"
	case OpDisconnect:
		return "disconnect"
	case OpReconnect:
		return "reconnect"
	case OpFavourite:
		return "favourite"
	case OpDelete:
		return "delete"
	case OpMoveUp:
		return "move-up"
	case OpMoveDown:
		return "move-down"
	case OpRequestList:
		return "request-list"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// ParseDeviceOp maps a command name as printed by String back to its op.
func ParseDeviceOp(s string) (DeviceOp, error) {
	for o := OpConnect; o <= OpRequestList; o++ {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown device command %q", s)
}

const (
	DeviceSlots    = 5
	DeviceNameSize = 32

	noFavourite = 0xFF

	deviceListSize  = 1 + 1 + 1 + 6 + DeviceSlots*6 + DeviceSlots*DeviceNameSize
	deviceEventSize = 1 + 6 + DeviceNameSize
	deviceCmdSize   = 1 + 6
)

// DeviceEntry is one remembered bluetooth device.
type DeviceEntry struct {
	Addr carcomms.Addr
	Name string
}

// DeviceList is the paired device list published by the audio node.
type DeviceList struct {
	Devices []DeviceEntry
	// Favourite is an index into Devices, or -1.
	Favourite int
	// Connected is zero when nothing is connected.
	Connected carcomms.Addr
}

func (DeviceList) Type() Type { return TypeBTDevices }

func (l DeviceList) MarshalBinary() ([]byte, error) {
	if len(l.Devices) > DeviceSlots {
		return nil, fmt.Errorf("%d devices exceeds %d slots", len(l.Devices), DeviceSlots)
	}

	w := writer{b: make([]byte, 0, deviceListSize)}
	w.u8(uint8(OpList))
	w.u8(uint8(len(l.Devices)))
	if l.Favourite < 0 || l.Favourite >= len(l.Devices) {
		w.u8(noFavourite)
	} else {
		w.u8(uint8(l.Favourite))
	}
	w.bytes(l.Connected[:])

	var addrs [DeviceSlots]carcomms.Addr
	var names [DeviceSlots]string
	for i, d := range l.Devices {
		addrs[i] = d.Addr
		names[i] = d.Name
	}
	for _, a := range addrs {
		w.bytes(a[:])
	}
	for _, n := range names {
		w.str(n, DeviceNameSize)
	}
	return w.b, nil
}

// DeviceEvent reports a connection change on the audio node.
type DeviceEvent struct {
	Connected bool
	Addr      carcomms.Addr
	Name      string
}

func (DeviceEvent) Type() Type { return TypeBTDevices }

func (e DeviceEvent) MarshalBinary() ([]byte, error) {
	op := OpDisconnected
	if e.Connected {
		op = OpConnected
	}

	w := writer{b: make([]byte, 0, deviceEventSize)}
	w.u8(uint8(op))
	w.bytes(e.Addr[:])
	w.str(e.Name, DeviceNameSize)
	return w.b, nil
}

// DeviceCommand asks the audio node to act on its device list. Addr is
// ignored by ops that do not name a device.
type DeviceCommand struct {
	Op   DeviceOp
	Addr carcomms.Addr
}

func (DeviceCommand) Type() Type { return TypeBTDevices }

func (c DeviceCommand) MarshalBinary() ([]byte, error) {
	if c.Op < OpConnect || c.Op > OpRequestList {
		return nil, ErrUnknownOp
	}
	w := writer{b: make([]byte, 0, deviceCmdSize)}
	w.u8(uint8(c.Op))
	w.bytes(c.Addr[:])
	return w.b, nil
}

func parseDevices(p []byte) (Body, error) {
	if err := need(p, 1); err != nil {
		return nil, err
	}

	op := DeviceOp(p[0])
	switch {
	case op == OpList:
		return parseDeviceList(p)
	case op == OpConnected || op == OpDisconnected:
		if err := need(p, deviceEventSize); err != nil {
			return nil, err
		}
		r := reader{b: p, pos: 1}
		e := DeviceEvent{Connected: op == OpConnected}
		copy(e.Addr[:], r.bytes(6))
		e.Name = r.str(DeviceNameSize)
		return e, nil
	case op >= OpConnect && op <= OpRequestList:
		if err := need(p, deviceCmdSize); err != nil {
			return nil, err
		}
		c := DeviceCommand{Op: op}
		copy(c.Addr[:], p[1:7])
		return c, nil
	default:
		return nil, ErrUnknownOp
	}
}

func parseDeviceList(p []byte) (Body, error) {
	if err := need(p, deviceListSize); err != nil {
		return nil, err
	}

	r := reader{b: p, pos: 1}
	count := int(r.u8())
	if count > DeviceSlots {
		return nil, fmt.Errorf("device count %d exceeds %d slots", count, DeviceSlots)
	}
	fav := int(r.u8())
	l := DeviceList{Favourite: -1, Devices: make([]DeviceEntry, count)}
	if fav < count {
		l.Favourite = fav
	}
	copy(l.Connected[:], r.bytes(6))

	for i := 0; i < DeviceSlots; i++ {
		a := r.bytes(6)
		if i < count {
			copy(l.Devices[i].Addr[:], a)
		}
	}
	for i := 0; i < DeviceSlots; i++ {
		n := r.str(DeviceNameSize)
		if i < count {
			l.Devices[i].Name = n
		}
	}
	return l, nil
}
