package bluez

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/retrofit-labs/carcomms"
)

const (
	busName     = "org.bluez"
	rootPath    = "/org/bluez"
	devicePfx   = "dev_"
	defaultHCI  = "hci0"
	playerChild = "player0"
)

// AdapterPath returns the object path of the named adapter, hci0 if empty.
func AdapterPath(name string) dbus.ObjectPath {
	if name == "" {
		name = defaultHCI
	}
	return dbus.ObjectPath(rootPath + "/" + name)
}

// DevicePath returns the object path of device a under adapter.
func DevicePath(adapter dbus.ObjectPath, a carcomms.Addr) dbus.ObjectPath {
	s := strings.ToUpper(strings.ReplaceAll(a.String(), ":", "_"))
	return adapter + "/" + dbus.ObjectPath(devicePfx+s)
}

// AddrFromPath extracts the device address from a device path or any
// object below it, such as the device's media player.
func AddrFromPath(adapter dbus.ObjectPath, p dbus.ObjectPath) (carcomms.Addr, error) {
	rest := strings.TrimPrefix(string(p), string(adapter)+"/")
	if rest == string(p) || !strings.HasPrefix(rest, devicePfx) {
		return carcomms.Addr{}, fmt.Errorf("%s is not a device path", p)
	}

	rest = strings.TrimPrefix(rest, devicePfx)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return carcomms.ParseAddr(strings.ReplaceAll(rest, "_", ":"))
}
