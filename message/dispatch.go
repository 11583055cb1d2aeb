package message

// Receiver gets one call per decoded message. Embed NopReceiver to
// implement only the kinds a node cares about.
type Receiver interface {
	OnCarInfo(CarInfo)
	OnGear(GearState)
	OnTrackInfo(TrackInfo)
	OnSkip(Skip)
	OnDisplayText(DisplayText)
	OnProximity(Proximity)
	OnDeviceList(DeviceList)
	OnDeviceEvent(DeviceEvent)
	OnDeviceCommand(DeviceCommand)
	OnTone(Tone)
	OnNoTone()
	OnAudioSource(AudioSource)
}

// NopReceiver ignores every message.
type NopReceiver struct{}

func (NopReceiver) OnCarInfo(CarInfo)             {}
func (NopReceiver) OnGear(GearState)              {}
func (NopReceiver) OnTrackInfo(TrackInfo)         {}
func (NopReceiver) OnSkip(Skip)                   {}
func (NopReceiver) OnDisplayText(DisplayText)     {}
func (NopReceiver) OnProximity(Proximity)         {}
func (NopReceiver) OnDeviceList(DeviceList)       {}
func (NopReceiver) OnDeviceEvent(DeviceEvent)     {}
func (NopReceiver) OnDeviceCommand(DeviceCommand) {}
func (NopReceiver) OnTone(Tone)                   {}
func (NopReceiver) OnNoTone()                     {}
func (NopReceiver) OnAudioSource(AudioSource)     {}

// Dispatcher parses raw payloads and routes them to a Receiver.
type Dispatcher struct {
	r       Receiver
	onError func(t Type, err error)
}

// NewDispatcher returns a dispatcher for r. onError, if not nil, is told
// about payloads that could not be parsed; they are otherwise dropped.
func NewDispatcher(r Receiver, onError func(t Type, err error)) *Dispatcher {
	return &Dispatcher{r: r, onError: onError}
}

func (d *Dispatcher) HandleMessage(t Type, payload []byte) {
	b, err := Parse(t, payload)
	if err != nil {
		if d.onError != nil {
			d.onError(t, err)
		}
		return
	}
	Deliver(d.r, b)
}

// Deliver calls the Receiver method matching the concrete body type.
func Deliver(r Receiver, b Body) {
	switch v := b.(type) {
	case CarInfo:
		r.OnCarInfo(v)
	case GearState:
		r.OnGear(v)
	case TrackInfo:
		r.OnTrackInfo(v)
	case Skip:
		r.OnSkip(v)
	case DisplayText:
		r.OnDisplayText(v)
	case Proximity:
		r.OnProximity(v)
	case DeviceList:
		r.OnDeviceList(v)
	case DeviceEvent:
		r.OnDeviceEvent(v)
	case DeviceCommand:
		r.OnDeviceCommand(v)
	case Tone:
		r.OnTone(v)
	case NoTone:
		r.OnNoTone()
	case AudioSource:
		r.OnAudioSource(v)
	}
}
