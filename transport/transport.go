// Package transport moves typed messages between nodes over a broadcast link.
package transport

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/retrofit-labs/carcomms"
	"github.com/retrofit-labs/carcomms/clock"
	"github.com/retrofit-labs/carcomms/message"
)

// DefaultChannel is the radio channel every node in the car uses.
const DefaultChannel = 4

var (
	// ErrNeverReceived is returned by the receive time accessors until a
	// matching message has been accepted.
	ErrNeverReceived = errors.New("no message received")

	ErrNotStarted     = errors.New("transport not started")
	ErrAlreadyStarted = errors.New("transport already started")
)

// Handler is called for every accepted message, on the link's receive goroutine.
// The payload is only valid for the duration of the call.
type Handler interface {
	HandleMessage(t message.Type, payload []byte)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(t message.Type, payload []byte)

func (f HandlerFunc) HandleMessage(t message.Type, payload []byte) { f(t, payload) }

// Transport frames, filters and dispatches messages on a Link.
type Transport struct {
	link    carcomms.Link
	handler Handler
	channel int
	mask    uint32

	clock      carcomms.Clock
	logger     carcomms.Logger
	errHandler func(error)

	muStart sync.Mutex
	started bool

	// receive times, zero means never
	muRecv sync.Mutex
	last   time.Time
	byType [message.NumTypes]time.Time
}

// New returns a transport for link that delivers accepted messages to h.
func New(link carcomms.Link, h Handler, opts ...carcomms.Option) (*Transport, error) {
	t := &Transport{
		link:    link,
		handler: h,
		channel: DefaultChannel,
		mask:    uint32(message.AllTypes),
		clock:   clock.System(),
		logger:  carcomms.GetLogger().ChildLogger(map[string]interface{}{"pkg": "transport"}),
	}
	if err := t.Option(opts...); err != nil {
		return nil, errors.Wrap(err, "can't set options")
	}

	return t, nil
}

// Option sets the options specified.
func (t *Transport) Option(opts ...carcomms.Option) error {
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return err
		}
	}
	return nil
}

// Begin opens the link and starts accepting messages.
func (t *Transport) Begin() error {
	t.muStart.Lock()
	defer t.muStart.Unlock()

	if t.started {
		return ErrAlreadyStarted
	}

	t.link.SetReceiver(t.onReceive)
	if err := t.link.Open(t.channel); err != nil {
		return errors.Wrapf(err, "can't open link on channel %d", t.channel)
	}

	if pr, ok := t.link.(carcomms.PeerRegistrar); ok {
		if err := pr.AddPeer(carcomms.BroadcastAddr, t.channel); err != nil {
			t.link.Close()
			return errors.Wrap(err, "can't register broadcast peer")
		}
	}

	t.started = true
	t.logger.Infof("started on channel %d", t.channel)
	return nil
}

// End closes the link. Receive times are kept.
func (t *Transport) End() error {
	t.muStart.Lock()

	if !t.started {
		t.muStart.Unlock()
		return nil
	}
	t.started = false
	t.muStart.Unlock()

	// links wait for their receive goroutine, which may be inside Send
	return errors.Wrap(t.link.Close(), "can't close link")
}

// Send broadcasts one message. There is no acknowledgement or retry.
func (t *Transport) Send(typ message.Type, payload []byte) error {
	if len(payload) > message.MaxPayloadSize {
		return errors.Wrapf(message.ErrPayloadTooLarge, "%d bytes", len(payload))
	}
	if !typ.Valid() {
		return errors.Wrapf(message.ErrInvalidType, "type 0x%02x", uint8(typ))
	}

	t.muStart.Lock()
	started := t.started
	t.muStart.Unlock()
	if !started {
		return ErrNotStarted
	}

	b, err := message.Encode(typ, payload)
	if err != nil {
		return err
	}

	if err := t.link.Broadcast(b); err != nil {
		return errors.Wrapf(err, "can't send %v", typ)
	}
	return nil
}

// SendBody marshals and broadcasts a decoded message body.
func (t *Transport) SendBody(b message.Body) error {
	p, err := b.MarshalBinary()
	if err != nil {
		return errors.Wrapf(err, "can't marshal %v", b.Type())
	}
	return t.Send(b.Type(), p)
}

// ReceiveTypeMask returns the set of message kinds currently accepted.
func (t *Transport) ReceiveTypeMask() message.Type {
	return message.Type(atomic.LoadUint32(&t.mask))
}

// SetReceiveTypeMask restricts which kinds are accepted, from the next arrival on.
func (t *Transport) SetReceiveTypeMask(mask uint8) error {
	atomic.StoreUint32(&t.mask, uint32(mask))
	return nil
}

func (t *Transport) onReceive(b []byte) {
	typ, payload, err := message.Decode(b)
	if err != nil {
		t.logger.Debugf("dropping %d byte datagram: %v", len(b), err)
		if t.errHandler != nil {
			t.errHandler(err)
		}
		return
	}
	if !typ.Valid() {
		err = errors.Wrapf(message.ErrInvalidType, "type 0x%02x", uint8(typ))
		t.logger.Debugf("dropping datagram: %v", err)
		if t.errHandler != nil {
			t.errHandler(err)
		}
		return
	}

	if typ&t.ReceiveTypeMask() == 0 {
		return
	}

	now := t.clock.Now()
	t.muRecv.Lock()
	t.last = now
	t.byType[typ.Index()] = now
	t.muRecv.Unlock()

	if t.handler != nil {
		t.handler.HandleMessage(typ, payload)
	}
}

// LastReceiveTime returns when any message was last accepted.
func (t *Transport) LastReceiveTime() (time.Time, error) {
	t.muRecv.Lock()
	defer t.muRecv.Unlock()

	if t.last.IsZero() {
		return time.Time{}, ErrNeverReceived
	}
	return t.last, nil
}

// TimeSinceLastReceive returns the time elapsed since any message was last accepted.
func (t *Transport) TimeSinceLastReceive() (time.Duration, error) {
	last, err := t.LastReceiveTime()
	if err != nil {
		return 0, err
	}
	return t.clock.Now().Sub(last), nil
}

// LastReceiveTimeOf returns when a message of kind typ was last accepted.
func (t *Transport) LastReceiveTimeOf(typ message.Type) (time.Time, error) {
	if !typ.Valid() {
		return time.Time{}, message.ErrInvalidType
	}

	t.muRecv.Lock()
	defer t.muRecv.Unlock()

	at := t.byType[typ.Index()]
	if at.IsZero() {
		return time.Time{}, ErrNeverReceived
	}
	return at, nil
}

// TimeSinceLastReceiveOf returns the time elapsed since a message of kind typ was last accepted.
func (t *Transport) TimeSinceLastReceiveOf(typ message.Type) (time.Duration, error) {
	last, err := t.LastReceiveTimeOf(typ)
	if err != nil {
		return 0, err
	}
	return t.clock.Now().Sub(last), nil
}
