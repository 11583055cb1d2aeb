package headunit

import (
	"sync"
	"testing"
	"time"

	"github.com/retrofit-labs/carcomms"
	"github.com/retrofit-labs/carcomms/clock/clocktest"
	"github.com/retrofit-labs/carcomms/message"
	"github.com/retrofit-labs/carcomms/radio/loopback"
	"github.com/retrofit-labs/carcomms/stacktest"
	"github.com/retrofit-labs/carcomms/store"
	"github.com/retrofit-labs/carcomms/transport"
)

// cluster is the instrument cluster end of the radio.
type cluster struct {
	message.NopReceiver

	mu     sync.Mutex
	lists  []message.DeviceList
	events []message.DeviceEvent
	tracks []message.TrackInfo
}

func (c *cluster) OnDeviceList(l message.DeviceList) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists = append(c.lists, l)
}

func (c *cluster) OnDeviceEvent(e message.DeviceEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *cluster) OnTrackInfo(t message.TrackInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks = append(c.tracks, t)
}

func (c *cluster) lastList(t *testing.T) message.DeviceList {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lists) == 0 {
		t.Fatalf("expected a device list but got none")
	}
	return c.lists[len(c.lists)-1]
}

type fixture struct {
	node  *Node
	stack *stacktest.Stack
	clk   *clocktest.Fake
	peer  *transport.Transport
	seen  *cluster
}

func newFixture(t *testing.T) *fixture {
	m := loopback.NewMedium()
	f := &fixture{stack: stacktest.New(), clk: clocktest.New(), seen: &cluster{}}

	var err error
	f.node, err = New(Config{
		Link:        m.NewLink(),
		Stack:       f.stack,
		Store:       store.NewMemory(),
		LinkOptions: []carcomms.Option{carcomms.OptClock(f.clk)},
		ConnOptions: []carcomms.ConnOption{carcomms.OptSessionClock(f.clk)},
	})
	if err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}

	f.peer, err = transport.New(m.NewLink(), message.NewDispatcher(f.seen, nil))
	if err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	if err := f.peer.Begin(); err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	if err := f.node.Start(); err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	return f
}

func addr(last byte) carcomms.Addr {
	return carcomms.Addr{1, 2, 3, 4, 5, last}
}

func TestStartPublishesEmptyList(t *testing.T) {
	f := newFixture(t)

	l := f.seen.lastList(t)
	if len(l.Devices) != 0 || l.Favourite != -1 {
		t.Fatalf("expected empty list but got %+v", l)
	}
	if f.node.Transport().ReceiveTypeMask() != ReceiveMask {
		t.Fatalf("expected mask %v but got %v", ReceiveMask, f.node.Transport().ReceiveTypeMask())
	}
}

func TestConnectionFlow(t *testing.T) {
	f := newFixture(t)
	h := f.stack.Handler()

	h.ConnectionStateChanged(addr(1), carcomms.StateConnected)
	h.RemoteNameResolved(addr(1), "Pixel")

	l := f.seen.lastList(t)
	if len(l.Devices) != 1 || l.Devices[0].Name != "Pixel" || l.Connected != addr(1) {
		t.Fatalf("expected Pixel connected in the list but got %+v", l)
	}
	if len(f.seen.events) != 1 || !f.seen.events[0].Connected || f.seen.events[0].Name != "Pixel" {
		t.Fatalf("expected connect event but got %+v", f.seen.events)
	}
	if f.node.Media().Session().SourceName() != "Pixel" {
		t.Fatalf("expected source name Pixel")
	}

	h.RemoteControlStateChanged(true)
	h.MetadataReceived(carcomms.AttrTitle, "Song")
	h.PlayPositionChanged(3 * time.Second)
	if n := len(f.seen.tracks); n != 2 {
		t.Fatalf("expected 2 track updates but got %d", n)
	}
	if tr := f.seen.tracks[1]; tr.Title != "Song" || tr.Position != 3*time.Second {
		t.Fatalf("unexpected track %+v", tr)
	}

	h.ConnectionStateChanged(addr(1), carcomms.StateDisconnected)
	if ev := f.seen.events[len(f.seen.events)-1]; ev.Connected || ev.Addr != addr(1) {
		t.Fatalf("expected disconnect event but got %+v", ev)
	}
	if l := f.seen.lastList(t); !l.Connected.IsZero() {
		t.Fatalf("expected nothing connected but got %v", l.Connected)
	}
}

func TestDeviceCommands(t *testing.T) {
	f := newFixture(t)
	h := f.stack.Handler()
	for i := byte(1); i <= 3; i++ {
		h.ConnectionStateChanged(addr(i), carcomms.StateConnected)
		h.ConnectionStateChanged(addr(i), carcomms.StateDisconnected)
	}

	f.peer.SendBody(message.DeviceCommand{Op: message.OpFavourite, Addr: addr(3)})
	l := f.seen.lastList(t)
	if l.Favourite != 0 || l.Devices[0].Addr != addr(3) {
		t.Fatalf("expected %v favourite at 0 but got %+v", addr(3), l)
	}

	f.peer.SendBody(message.DeviceCommand{Op: message.OpDelete, Addr: addr(1)})
	if l := f.seen.lastList(t); len(l.Devices) != 2 {
		t.Fatalf("expected 2 devices after delete but got %+v", l)
	}

	before := len(f.seen.lists)
	f.peer.SendBody(message.DeviceCommand{Op: message.OpRequestList})
	if len(f.seen.lists) != before+1 {
		t.Fatalf("expected list on request")
	}

	f.peer.SendBody(message.DeviceCommand{Op: message.OpConnect, Addr: addr(2)})
	connects := f.stack.Connects()
	if connects[len(connects)-1] != addr(2) {
		t.Fatalf("expected connect to %v but got %v", addr(2), connects)
	}

	f.clk.Advance(5 * time.Second)
	if ev := f.seen.events[len(f.seen.events)-1]; ev.Connected || ev.Addr != addr(2) {
		t.Fatalf("expected disconnect notice after connect timeout but got %+v", ev)
	}
}

func TestSkip(t *testing.T) {
	f := newFixture(t)
	f.stack.Handler().RemoteControlStateChanged(true)

	f.peer.SendBody(message.Skip{Forward: true})
	f.peer.SendBody(message.Skip{Reverse: true})

	p := f.stack.Passthroughs()
	if len(p) != 4 || p[0].Cmd != carcomms.CmdForward || p[2].Cmd != carcomms.CmdBackward {
		t.Fatalf("expected next then previous but got %+v", p)
	}
}

func TestIgnoresMaskedKinds(t *testing.T) {
	f := newFixture(t)
	f.peer.SendBody(message.GearState{Gear: message.Second})

	if _, err := f.node.Transport().LastReceiveTimeOf(message.TypeGear); err == nil {
		t.Fatalf("expected gear messages to be filtered out")
	}
}
