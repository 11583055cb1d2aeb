// Package bluez implements the audio node's bluetooth stack on a Linux host
// through the BlueZ D-Bus API.
package bluez

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/pkg/errors"

	"github.com/retrofit-labs/carcomms"
)

const (
	ifaceDevice     = "org.bluez.Device1"
	ifaceControl    = "org.bluez.MediaControl1"
	ifacePlayer     = "org.bluez.MediaPlayer1"
	ifaceProperties = "org.freedesktop.DBus.Properties"

	propertiesChanged = ifaceProperties + ".PropertiesChanged"
)

var ErrNoPlayer = errors.New("no media player")

// Stack is a carcomms.Stack backed by BlueZ.
type Stack struct {
	conn    *dbus.Conn
	adapter dbus.ObjectPath
	logger  carcomms.Logger

	mu        sync.Mutex
	handler   carcomms.StackHandler
	connected carcomms.Addr
	player    dbus.ObjectPath

	rule    string
	signals chan *dbus.Signal
	done    chan struct{}
	wg      sync.WaitGroup
}

// New returns a stack using adapter (e.g. "hci0") on conn.
func New(conn *dbus.Conn, adapter string) *Stack {
	return &Stack{
		conn:    conn,
		adapter: AdapterPath(adapter),
		logger:  carcomms.GetLogger().ChildLogger(map[string]interface{}{"pkg": "bluez"}),
	}
}

// Dial connects to the system bus and returns a stack on adapter.
func Dial(adapter string) (*Stack, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, errors.Wrap(err, "can't connect to system bus")
	}
	return New(conn, adapter), nil
}

// Start subscribes to property changes below the adapter.
func (s *Stack) Start() error {
	s.rule = fmt.Sprintf("type='signal',interface='%s',member='PropertiesChanged',path_namespace='%s'", ifaceProperties, s.adapter)
	if err := s.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, s.rule).Err; err != nil {
		return errors.Wrap(err, "can't add match rule")
	}

	s.signals = make(chan *dbus.Signal, 100)
	s.done = make(chan struct{})
	s.conn.Signal(s.signals)

	s.wg.Add(1)
	go s.signalLoop()
	return nil
}

func (s *Stack) Close() error {
	if s.done == nil {
		return nil
	}
	close(s.done)
	s.wg.Wait()
	s.conn.RemoveSignal(s.signals)
	return s.conn.BusObject().Call("org.freedesktop.DBus.RemoveMatch", 0, s.rule).Err
}

func (s *Stack) SetHandler(h carcomms.StackHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

func (s *Stack) getHandler() carcomms.StackHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler
}

// Connect starts a connection; Device1.Connect blocks until the profiles
// are up, so the outcome arrives as a property change or, on failure, as
// a disconnected event.
func (s *Stack) Connect(a carcomms.Addr) error {
	obj := s.conn.Object(busName, DevicePath(s.adapter, a))
	if h := s.getHandler(); h != nil {
		h.ConnectionStateChanged(a, carcomms.StateConnecting)
	}

	go func() {
		if err := obj.Call(ifaceDevice+".Connect", 0).Err; err != nil {
			s.logger.Warnf("connect %v: %v", a, err)
			if h := s.getHandler(); h != nil {
				h.ConnectionStateChanged(a, carcomms.StateDisconnected)
			}
		}
	}()
	return nil
}

func (s *Stack) Disconnect() error {
	s.mu.Lock()
	a := s.connected
	s.mu.Unlock()
	if a.IsZero() {
		return nil
	}

	obj := s.conn.Object(busName, DevicePath(s.adapter, a))
	return errors.Wrapf(obj.Call(ifaceDevice+".Disconnect", 0).Err, "can't disconnect %v", a)
}

func (s *Stack) RequestRemoteName(a carcomms.Addr) error {
	obj := s.conn.Object(busName, DevicePath(s.adapter, a))
	go func() {
		var name string
		if err := obj.Call(ifaceProperties+".Get", 0, ifaceDevice, "Alias").Store(&name); err != nil {
			s.logger.Warnf("can't read name of %v: %v", a, err)
		}
		if h := s.getHandler(); h != nil {
			h.RemoteNameResolved(a, name)
		}
	}()
	return nil
}

// RequestMetadata reads the player's current track. BlueZ keeps its own
// transaction labels, so label is unused.
func (s *Stack) RequestMetadata(label uint8, attrs ...carcomms.MediaAttr) error {
	obj, err := s.playerObject()
	if err != nil {
		return err
	}

	go func() {
		var track map[string]dbus.Variant
		if err := obj.Call(ifaceProperties+".Get", 0, ifacePlayer, "Track").Store(&track); err != nil {
			s.logger.Warnf("can't read track: %v", err)
			return
		}
		if h := s.getHandler(); h != nil {
			deliverTrack(h, track, attrs)
		}
	}()
	return nil
}

// Passthrough maps key presses onto player methods. Releases are implied.
func (s *Stack) Passthrough(label uint8, cmd carcomms.PassthroughCmd, pressed bool) error {
	if !pressed {
		return nil
	}

	var method string
	switch cmd {
	case carcomms.CmdPlay:
		method = "Play"
	case carcomms.CmdStop:
		method = "Stop"
	case carcomms.CmdPause:
		method = "Pause"
	case carcomms.CmdForward:
		method = "Next"
	case carcomms.CmdBackward:
		method = "Previous"
	default:
		return fmt.Errorf("unsupported key 0x%02x", uint8(cmd))
	}

	obj, err := s.playerObject()
	if err != nil {
		return err
	}
	return errors.Wrapf(obj.Call(ifacePlayer+"."+method, 0).Err, "can't %s", method)
}

func (s *Stack) playerObject() (dbus.BusObject, error) {
	s.mu.Lock()
	p := s.player
	if p == "" && !s.connected.IsZero() {
		p = DevicePath(s.adapter, s.connected) + "/" + playerChild
	}
	s.mu.Unlock()

	if p == "" {
		return nil, ErrNoPlayer
	}
	return s.conn.Object(busName, p), nil
}

func (s *Stack) signalLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case sig := <-s.signals:
			if sig != nil {
				s.handleSignal(sig)
			}
		}
	}
}

// deliverTrack reports the wanted attributes of a BlueZ Track dictionary,
// every attribute when wanted is empty.
func deliverTrack(h carcomms.StackHandler, track map[string]dbus.Variant, wanted []carcomms.MediaAttr) {
	want := func(a carcomms.MediaAttr) bool {
		if len(wanted) == 0 {
			return true
		}
		for _, w := range wanted {
			if w == a {
				return true
			}
		}
		return false
	}

	for key, attr := range map[string]carcomms.MediaAttr{
		"Title":  carcomms.AttrTitle,
		"Artist": carcomms.AttrArtist,
		"Album":  carcomms.AttrAlbum,
	} {
		if v, ok := track[key]; ok && want(attr) {
			if str, ok := v.Value().(string); ok {
				h.MetadataReceived(attr, str)
			}
		}
	}
	if v, ok := track["Duration"]; ok && want(carcomms.AttrPlayingTime) {
		if ms, ok := v.Value().(uint32); ok {
			h.MetadataReceived(carcomms.AttrPlayingTime, strconv.FormatUint(uint64(ms), 10))
		}
	}
}
