// Package headunit is the bluetooth audio node: it remembers paired phones,
// reconnects on power up, and publishes the device list and the playing
// track to the rest of the car.
package headunit

import (
	"time"

	"github.com/pkg/errors"

	"github.com/retrofit-labs/carcomms"
	"github.com/retrofit-labs/carcomms/media"
	"github.com/retrofit-labs/carcomms/message"
	"github.com/retrofit-labs/carcomms/reconnect"
	"github.com/retrofit-labs/carcomms/registry"
	"github.com/retrofit-labs/carcomms/transport"
)

// ReceiveMask is the set of messages the audio node acts on.
const ReceiveMask = message.TypeBTSkip | message.TypeBTDevices

type Config struct {
	Link  carcomms.Link
	Stack carcomms.Stack
	Store carcomms.Store

	LinkOptions []carcomms.Option
	ConnOptions []carcomms.ConnOption
}

type Node struct {
	message.NopReceiver

	transport *transport.Transport
	reg       *registry.Registry
	orch      *reconnect.Orchestrator
	ctl       *media.Controller
	logger    carcomms.Logger
}

func New(cfg Config) (*Node, error) {
	n := &Node{
		logger: carcomms.GetLogger().ChildLogger(map[string]interface{}{"pkg": "headunit"}),
	}

	var err error
	n.reg, err = registry.Open(cfg.Store)
	if err != nil {
		return nil, errors.Wrap(err, "can't open device registry")
	}

	n.orch, err = reconnect.New(cfg.Stack, n.reg, cfg.ConnOptions...)
	if err != nil {
		return nil, err
	}

	session := media.NewSession()
	n.ctl = media.NewController(cfg.Stack, session)

	d := message.NewDispatcher(n, func(t message.Type, err error) {
		n.logger.Debugf("dropping %v: %v", t, err)
	})
	opts := append([]carcomms.Option{carcomms.OptReceiveTypeMask(uint8(ReceiveMask))}, cfg.LinkOptions...)
	n.transport, err = transport.New(cfg.Link, d, opts...)
	if err != nil {
		return nil, err
	}

	n.orch.SetNotifier(n)
	n.orch.SetSession(session)
	n.reg.SetSaveHandler(n.publishDevices)
	session.SetChangeHandler(n.publishTrack)
	cfg.Stack.SetHandler(n)

	return n, nil
}

func (n *Node) Transport() *transport.Transport       { return n.transport }
func (n *Node) Registry() *registry.Registry          { return n.reg }
func (n *Node) Orchestrator() *reconnect.Orchestrator { return n.orch }
func (n *Node) Media() *media.Controller              { return n.ctl }

// Start joins the radio, announces the device list and starts reconnecting.
func (n *Node) Start() error {
	if err := n.transport.Begin(); err != nil {
		return err
	}
	n.publishDevices(n.reg.Snapshot())
	return n.orch.Reconnect()
}

func (n *Node) Stop() error {
	return n.transport.End()
}

func (n *Node) OnSkip(s message.Skip) {
	var err error
	switch {
	case s.Forward:
		err = n.ctl.Next()
	case s.Reverse:
		err = n.ctl.Previous()
	}
	if err != nil {
		n.logger.Warnf("can't skip: %v", err)
	}
}

func (n *Node) OnDeviceCommand(c message.DeviceCommand) {
	n.logger.Debugf("device command %v %v", c.Op, c.Addr)

	var err error
	switch c.Op {
	case message.OpConnect:
		err = n.orch.Connect(c.Addr)
	case message.OpDisconnect:
		err = n.orch.Disconnect()
	case message.OpReconnect:
		err = n.orch.Reconnect()
	case message.OpFavourite:
		err = n.reg.Favourite(c.Addr)
	case message.OpDelete:
		err = n.reg.Delete(c.Addr)
	case message.OpMoveUp:
		err = n.reg.MoveUp(c.Addr)
	case message.OpMoveDown:
		err = n.reg.MoveDown(c.Addr)
	case message.OpRequestList:
		n.publishDevices(n.reg.Snapshot())
	}
	if err != nil {
		n.logger.Warnf("%v %v: %v", c.Op, c.Addr, err)
	}
}

func (n *Node) ConnectionStateChanged(a carcomms.Addr, s carcomms.ConnectionState) {
	n.orch.HandleConnectionState(a, s)
}

func (n *Node) RemoteNameResolved(a carcomms.Addr, name string) {
	n.ctl.Session().SetSourceName(name)
	n.orch.HandleRemoteName(a, name)
}

func (n *Node) RemoteControlStateChanged(connected bool) {
	n.ctl.HandleRemoteControl(connected)
}

func (n *Node) MetadataReceived(attr carcomms.MediaAttr, text string) {
	n.ctl.Session().ApplyAttribute(attr, text)
}

func (n *Node) PlayStatusChanged(s carcomms.PlayStatus) {
	n.ctl.Session().SetStatus(s)
}

func (n *Node) PlayPositionChanged(pos time.Duration) {
	n.ctl.Session().SetPosition(pos)
}

func (n *Node) TrackChanged() {
	n.ctl.HandleTrackChanged()
}

func (n *Node) DeviceConnected(a carcomms.Addr, name string) {
	n.send(message.DeviceEvent{Connected: true, Addr: a, Name: name})
}

func (n *Node) DeviceDisconnected(a carcomms.Addr) {
	n.send(message.DeviceEvent{Connected: false, Addr: a})
}

func (n *Node) publishDevices(s registry.Snapshot) {
	l := message.DeviceList{
		Devices:   make([]message.DeviceEntry, len(s.Devices)),
		Favourite: s.Favourite,
		Connected: s.Connected,
	}
	for i, d := range s.Devices {
		l.Devices[i] = message.DeviceEntry{Addr: d.Addr, Name: d.Name}
	}
	n.send(l)
}

func (n *Node) publishTrack(t message.TrackInfo) {
	n.send(t)
}

// send is best effort; the next update supersedes a lost one.
func (n *Node) send(b message.Body) {
	err := n.transport.SendBody(b)
	if errors.Is(err, transport.ErrNotStarted) {
		return
	}
	if err != nil {
		n.logger.Warnf("can't publish %v: %v", b.Type(), err)
	}
}
