package message

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/retrofit-labs/carcomms"
)

func TestBodies(t *testing.T) {
	a1 := carcomms.MustParseAddr("aa:bb:cc:dd:ee:01")
	a2 := carcomms.MustParseAddr("aa:bb:cc:dd:ee:02")

	tests := []struct {
		name string
		body Body
		size int
	}{
		{"car info", CarInfo{
			RPM: 3200, Speed: 88, ThrottlePosition: 40, EngineLoad: 55,
			Odometer: 123456, CurrentRunTime: 900,
			HandbrakeOn: true, BrakePressed: true, SteeringAngle: -12.5,
			FuelEcoInst: 6.2, FuelEcoAvg: 7.1, KmRemaining: 420, FuelLevel: 61,
			CoolantTemp: 91, OilTemp: -4, OilPressure: 300,
			FrontPassengerDoorOpen: true, HatchOpen: true,
		}, CarInfoSize},
		{"gear", GearState{Gear: Reverse}, 1},
		{"track", TrackInfo{Title: "Song", Artist: "Band", Album: "Record", Length: 185 * time.Second, Position: 2500 * time.Millisecond}, TrackInfoSize},
		{"skip", Skip{Forward: true}, 2},
		{"display", DisplayText{Text: "HELLO"}, DisplayTextSize},
		{"proximity", Proximity{Distances: [4]uint16{10, 200, 3000, 65535}}, 8},
		{"device list", DeviceList{
			Devices:   []DeviceEntry{{a1, "Phone"}, {a2, "Tablet"}},
			Favourite: 1,
			Connected: a2,
		}, deviceListSize},
		{"device list empty", DeviceList{Devices: []DeviceEntry{}, Favourite: -1}, deviceListSize},
		{"device event", DeviceEvent{Connected: true, Addr: a1, Name: "Phone"}, deviceEventSize},
		{"device command", DeviceCommand{Op: OpFavourite, Addr: a2}, deviceCmdSize},
		{"tone", Tone{Frequency: 440, Duration: 250 * time.Millisecond}, 5},
		{"no tone", NoTone{}, 1},
		{"audio source", AudioSource{Source: SourceAux}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.body.MarshalBinary()
			if err != nil {
				t.Fatalf("MarshalBinary() error = %v", err)
			}
			if len(p) != tt.size {
				t.Fatalf("len = %d, want %d", len(p), tt.size)
			}
			if len(p) > MaxPayloadSize {
				t.Fatalf("payload %d exceeds MaxPayloadSize", len(p))
			}

			got, err := Parse(tt.body.Type(), p)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.body) {
				t.Fatalf("Parse() = %+v, want %+v", got, tt.body)
			}
		})
	}
}

func TestStringFieldsTruncate(t *testing.T) {
	long := strings.Repeat("x", 100)
	p, _ := TrackInfo{Title: long}.MarshalBinary()
	b, err := Parse(TypeBTInfo, p)
	if err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	if got := b.(TrackInfo).Title; len(got) != TrackFieldSize-1 {
		t.Fatalf("expected title truncated to %d but got %d", TrackFieldSize-1, len(got))
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		payload []byte
		want    error
	}{
		{"short car info", TypeCarInfo, make([]byte, CarInfoSize-1), ErrShortPayload},
		{"empty gear", TypeGear, nil, ErrShortPayload},
		{"unknown device op", TypeBTDevices, []byte{0x7f}, ErrUnknownOp},
		{"short command", TypeBTDevices, []byte{byte(OpDelete), 1, 2}, ErrShortPayload},
		{"unknown accessory", TypeAccessory, []byte{0x20}, ErrUnknownOp},
		{"multi bit type", TypeGear | TypeBTSkip, []byte{1}, ErrInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Parse(tt.typ, tt.payload)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Parse() error = %v, want %v", err, tt.want)
			}
			if b != nil {
				t.Fatalf("Parse() body = %v, want nil", b)
			}
		})
	}
}

type recordingReceiver struct {
	NopReceiver
	skips  []Skip
	cmds   []DeviceCommand
	noTone int
}

func (r *recordingReceiver) OnSkip(s Skip)                   { r.skips = append(r.skips, s) }
func (r *recordingReceiver) OnDeviceCommand(c DeviceCommand) { r.cmds = append(r.cmds, c) }
func (r *recordingReceiver) OnNoTone()                       { r.noTone++ }

func TestDispatcher(t *testing.T) {
	r := &recordingReceiver{}
	var errs int
	d := NewDispatcher(r, func(Type, error) { errs++ })

	p, _ := Skip{Reverse: true}.MarshalBinary()
	d.HandleMessage(TypeBTSkip, p)
	p, _ = DeviceCommand{Op: OpReconnect}.MarshalBinary()
	d.HandleMessage(TypeBTDevices, p)
	d.HandleMessage(TypeAccessory, []byte{byte(KindNoTone)})
	d.HandleMessage(TypeCarInfo, []byte{1, 2})

	if len(r.skips) != 1 || !r.skips[0].Reverse {
		t.Fatalf("expected one reverse skip but got %v", r.skips)
	}
	if len(r.cmds) != 1 || r.cmds[0].Op != OpReconnect {
		t.Fatalf("expected one reconnect command but got %v", r.cmds)
	}
	if r.noTone != 1 {
		t.Fatalf("expected one no-tone but got %d", r.noTone)
	}
	if errs != 1 {
		t.Fatalf("expected one parse error but got %d", errs)
	}
}
