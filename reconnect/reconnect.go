// Package reconnect drives connection attempts to remembered bluetooth devices.
//
// A reconnect walks the registry in order, favourite first, giving each
// device one attempt bounded by a timeout. A manual connect makes a single
// attempt. Every scheduled timeout carries the epoch it was armed in; any
// state change bumps the epoch so a late timer finds it stale and does nothing.
package reconnect

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/retrofit-labs/carcomms"
	"github.com/retrofit-labs/carcomms/clock"
	"github.com/retrofit-labs/carcomms/registry"
)

const (
	DefaultConnectTimeout   = 5000 * time.Millisecond
	DefaultReconnectTimeout = 5000 * time.Millisecond
)

var ErrBusy = errors.New("reconnect already in progress")

type State int

const (
	Idle State = iota
	Connecting
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Reconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Notifier is told about connections the application should display.
type Notifier interface {
	DeviceConnected(a carcomms.Addr, name string)
	DeviceDisconnected(a carcomms.Addr)
}

// Session is the cached media state dropped on Disconnect.
type Session interface {
	Clear()
}

type Orchestrator struct {
	stack    carcomms.Stack
	reg      *registry.Registry
	notifier Notifier
	session  Session

	clock            carcomms.Clock
	logger           carcomms.Logger
	connectTimeout   time.Duration
	reconnectTimeout time.Duration

	mu         sync.Mutex
	state      State
	epoch      uint64
	timer      carcomms.Timer
	target     carcomms.Addr
	candidates []carcomms.Addr
	cursor     int
}

func New(stack carcomms.Stack, reg *registry.Registry, opts ...carcomms.ConnOption) (*Orchestrator, error) {
	o := &Orchestrator{
		stack:            stack,
		reg:              reg,
		clock:            clock.System(),
		logger:           carcomms.GetLogger().ChildLogger(map[string]interface{}{"pkg": "reconnect"}),
		connectTimeout:   DefaultConnectTimeout,
		reconnectTimeout: DefaultReconnectTimeout,
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, errors.Wrap(err, "can't set options")
		}
	}
	return o, nil
}

// SetNotifier installs n. It must be called before events arrive.
func (o *Orchestrator) SetNotifier(n Notifier) {
	o.notifier = n
}

// SetSession installs the media session cleared by Disconnect.
func (o *Orchestrator) SetSession(s Session) {
	o.session = s
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Target returns the device of the attempt in progress.
func (o *Orchestrator) Target() (carcomms.Addr, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.target, o.state != Idle
}

// Reconnect starts a cascade over the remembered devices. It only starts
// from Idle; an empty registry leaves it Idle.
func (o *Orchestrator) Reconnect() error {
	o.mu.Lock()
	if o.state != Idle {
		o.mu.Unlock()
		return ErrBusy
	}
	o.cancelLocked()
	o.state = Reconnecting
	epoch := o.epoch
	o.mu.Unlock()

	if err := o.reg.Reload(); err != nil {
		o.logger.Warnf("using in-memory device list: %v", err)
	}
	if err := o.reg.PromoteFavourite(); err != nil {
		o.logger.Warnf("can't promote favourite: %v", err)
	}
	devices := o.reg.Devices()

	o.mu.Lock()
	if o.state != Reconnecting || o.epoch != epoch {
		// superseded by a connect or disconnect while loading
		o.mu.Unlock()
		return nil
	}
	if len(devices) == 0 {
		o.state = Idle
		o.mu.Unlock()
		o.logger.Info("no remembered devices, not reconnecting")
		return nil
	}

	o.candidates = o.candidates[:0]
	for _, d := range devices {
		o.candidates = append(o.candidates, d.Addr)
	}
	o.cursor = 0
	a, ep := o.armLocked(o.candidates[0], o.reconnectTimeout)
	o.mu.Unlock()

	o.logger.Infof("reconnecting, %d candidates", len(devices))
	o.dial(a, ep)
	return nil
}

// Connect makes a single attempt at a, abandoning anything in progress.
func (o *Orchestrator) Connect(a carcomms.Addr) error {
	o.mu.Lock()
	o.cancelLocked()
	o.state = Connecting
	o.candidates = o.candidates[:0]
	a, ep := o.armLocked(a, o.connectTimeout)
	o.mu.Unlock()

	o.logger.Infof("connecting to %v", a)
	return o.dial(a, ep)
}

// Disconnect abandons any attempt, drops the connection and forgets the
// cached track. A connected device is announced as disconnected once.
func (o *Orchestrator) Disconnect() error {
	o.mu.Lock()
	o.cancelLocked()
	o.state = Idle
	o.target = carcomms.Addr{}
	o.mu.Unlock()

	err := o.stack.Disconnect()

	// the stack's own disconnected event finds the marker gone, so the
	// notice is sent here
	var was bool
	a, ok := o.reg.Connected()
	if ok {
		var cerr error
		if was, cerr = o.reg.ClearConnectedIf(a); cerr != nil {
			o.logger.Errorf("can't clear connected device: %v", cerr)
		}
	}
	if o.session != nil {
		o.session.Clear()
	}
	if was && o.notifier != nil {
		o.notifier.DeviceDisconnected(a)
	}
	return errors.Wrap(err, "can't disconnect")
}

// HandleConnectionState feeds a stack connection event into the orchestrator.
func (o *Orchestrator) HandleConnectionState(a carcomms.Addr, s carcomms.ConnectionState) {
	switch s {
	case carcomms.StateConnected:
		o.onConnected(a)
	case carcomms.StateDisconnected:
		o.onDisconnected(a)
	default:
		o.logger.Debugf("%v %v", a, s)
	}
}

// HandleRemoteName stores a resolved device name and announces the connection.
func (o *Orchestrator) HandleRemoteName(a carcomms.Addr, name string) {
	if _, err := o.reg.AddOrUpdate(a, name); err != nil {
		o.logger.Errorf("can't store name of %v: %v", a, err)
	}
	if stored, ok := o.reg.Name(a); ok && name == "" {
		name = stored
	}

	if o.notifier != nil {
		o.notifier.DeviceConnected(a, name)
	}
}

func (o *Orchestrator) onConnected(a carcomms.Addr) {
	o.mu.Lock()
	o.cancelLocked()
	o.state = Idle
	o.target = a
	o.mu.Unlock()

	o.logger.Infof("connected to %v", a)
	if err := o.reg.MarkConnected(a, ""); err != nil {
		o.logger.Errorf("can't record connection: %v", err)
	}
	if err := o.stack.RequestRemoteName(a); err != nil {
		o.logger.Warnf("can't request name of %v: %v", a, err)
	}
}

func (o *Orchestrator) onDisconnected(a carcomms.Addr) {
	wasConnected, err := o.reg.ClearConnectedIf(a)
	if err != nil {
		o.logger.Errorf("can't clear connected device: %v", err)
	}

	o.mu.Lock()
	attempt := o.state != Idle && o.target == a
	ep := o.epoch
	o.mu.Unlock()

	if attempt {
		o.logger.Infof("attempt on %v failed", a)
		o.attemptFailed(ep)
		return
	}

	if wasConnected && o.notifier != nil {
		o.notifier.DeviceDisconnected(a)
	}
}

// dial asks the stack to connect; a synchronous refusal counts as a failed attempt.
func (o *Orchestrator) dial(a carcomms.Addr, ep uint64) error {
	err := o.stack.Connect(a)
	if err != nil {
		o.logger.Warnf("can't connect to %v: %v", a, err)
		o.attemptFailed(ep)
		return errors.Wrapf(err, "can't connect to %v", a)
	}
	return nil
}

func (o *Orchestrator) onTimeout(ep uint64) {
	o.mu.Lock()
	stale := ep != o.epoch
	target := o.target
	o.mu.Unlock()
	if stale {
		return
	}

	o.logger.Infof("attempt on %v timed out", target)
	o.attemptFailed(ep)
}

// attemptFailed ends the attempt armed in epoch ep and moves on: the next
// candidate of a reconnect, or Idle with a disconnect notice for a connect.
func (o *Orchestrator) attemptFailed(ep uint64) {
	o.mu.Lock()
	if ep != o.epoch {
		o.mu.Unlock()
		return
	}

	switch o.state {
	case Reconnecting:
		o.cursor++
		if o.cursor >= len(o.candidates) {
			o.cancelLocked()
			o.state = Idle
			o.target = carcomms.Addr{}
			o.mu.Unlock()
			o.logger.Info("reconnect exhausted all devices")
			return
		}
		a, next := o.armLocked(o.candidates[o.cursor], o.reconnectTimeout)
		o.mu.Unlock()
		o.dial(a, next)

	case Connecting:
		target := o.target
		o.cancelLocked()
		o.state = Idle
		o.target = carcomms.Addr{}
		o.mu.Unlock()
		if o.notifier != nil {
			o.notifier.DeviceDisconnected(target)
		}

	default:
		o.mu.Unlock()
	}
}

// armLocked makes a the target and schedules its timeout in a fresh epoch.
func (o *Orchestrator) armLocked(a carcomms.Addr, d time.Duration) (carcomms.Addr, uint64) {
	o.cancelLocked()
	o.target = a
	ep := o.epoch
	o.timer = o.clock.AfterFunc(d, func() { o.onTimeout(ep) })
	return a, ep
}

// cancelLocked stops the pending timer and invalidates its epoch.
func (o *Orchestrator) cancelLocked() {
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.epoch++
}
