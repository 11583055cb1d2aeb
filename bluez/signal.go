package bluez

import (
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/retrofit-labs/carcomms"
)

// handleSignal turns a PropertiesChanged signal into handler events. The
// body is interface name, changed properties, invalidated properties.
func (s *Stack) handleSignal(sig *dbus.Signal) {
	if sig.Name != propertiesChanged || len(sig.Body) < 2 {
		return
	}
	iface, ok := sig.Body[0].(string)
	if !ok {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	a, err := AddrFromPath(s.adapter, sig.Path)
	if err != nil {
		return
	}
	h := s.getHandler()
	if h == nil {
		return
	}

	switch iface {
	case ifaceDevice:
		s.deviceChanged(h, a, changed)
	case ifaceControl:
		s.controlChanged(h, changed)
	case ifacePlayer:
		s.playerChanged(h, sig.Path, changed)
	}
}

func (s *Stack) deviceChanged(h carcomms.StackHandler, a carcomms.Addr, changed map[string]dbus.Variant) {
	v, ok := changed["Connected"]
	if !ok {
		return
	}
	connected, ok := v.Value().(bool)
	if !ok {
		return
	}

	s.mu.Lock()
	switch {
	case connected:
		s.connected = a
	case s.connected == a:
		s.connected = carcomms.Addr{}
		s.player = ""
	}
	s.mu.Unlock()

	if connected {
		h.ConnectionStateChanged(a, carcomms.StateConnected)
	} else {
		h.ConnectionStateChanged(a, carcomms.StateDisconnected)
	}
}

func (s *Stack) controlChanged(h carcomms.StackHandler, changed map[string]dbus.Variant) {
	if v, ok := changed["Player"]; ok {
		if p, ok := v.Value().(dbus.ObjectPath); ok {
			s.mu.Lock()
			s.player = p
			s.mu.Unlock()
		}
	}
	if v, ok := changed["Connected"]; ok {
		if c, ok := v.Value().(bool); ok {
			h.RemoteControlStateChanged(c)
		}
	}
}

func (s *Stack) playerChanged(h carcomms.StackHandler, p dbus.ObjectPath, changed map[string]dbus.Variant) {
	s.mu.Lock()
	s.player = p
	s.mu.Unlock()

	if v, ok := changed["Track"]; ok {
		if track, ok := v.Value().(map[string]dbus.Variant); ok {
			h.TrackChanged()
			deliverTrack(h, track, nil)
		}
	}
	if v, ok := changed["Position"]; ok {
		if ms, ok := v.Value().(uint32); ok {
			h.PlayPositionChanged(time.Duration(ms) * time.Millisecond)
		}
	}
	if v, ok := changed["Status"]; ok {
		if st, ok := v.Value().(string); ok {
			h.PlayStatusChanged(parseStatus(st))
		}
	}
}

// parseStatus maps a MediaPlayer1 Status string.
func parseStatus(s string) carcomms.PlayStatus {
	switch strings.ToLower(s) {
	case "playing", "forward-seek", "reverse-seek":
		return carcomms.StatusPlaying
	case "paused":
		return carcomms.StatusPaused
	case "stopped":
		return carcomms.StatusStopped
	default:
		return carcomms.StatusError
	}
}
