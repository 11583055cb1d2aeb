package message

import (
	"fmt"
	"time"
)

// AccessoryKind is the first payload byte of an Accessory message.
type AccessoryKind uint8

const (
	KindTone AccessoryKind = iota + 1
	KindNoTone
	KindAudioSource
)

// Tone sounds the cabin buzzer. A zero Duration plays until NoTone.
type Tone struct {
	Frequency uint16
	Duration  time.Duration
}

func (Tone) Type() Type { return TypeAccessory }

func (t Tone) MarshalBinary() ([]byte, error) {
	ms := t.Duration / time.Millisecond
	if ms > 0xFFFF {
		return nil, fmt.Errorf("tone duration %v too long", t.Duration)
	}
	w := writer{b: make([]byte, 0, 5)}
	w.u8(uint8(KindTone))
	w.u16(t.Frequency)
	w.u16(uint16(ms))
	return w.b, nil
}

// NoTone silences the buzzer.
type NoTone struct{}

func (NoTone) Type() Type { return TypeAccessory }

func (NoTone) MarshalBinary() ([]byte, error) {
	return []byte{uint8(KindNoTone)}, nil
}

// Source is an input of the audio amplifier.
type Source uint8

const (
	SourceBluetooth Source = iota
	SourceAux
	SourceRadio
)

func (s Source) String() string {
	switch s {
	case SourceBluetooth:
		return "bluetooth"
	case SourceAux:
		return "aux"
	case SourceRadio:
		return "radio"
	default:
		return fmt.Sprintf("source(%d)", uint8(s))
	}
}

// AudioSource selects the amplifier input.
type AudioSource struct {
	Source Source
}

func (AudioSource) Type() Type { return TypeAccessory }

func (a AudioSource) MarshalBinary() ([]byte, error) {
	return []byte{uint8(KindAudioSource), uint8(a.Source)}, nil
}

func parseAccessory(p []byte) (Body, error) {
	if err := need(p, 1); err != nil {
		return nil, err
	}

	switch AccessoryKind(p[0]) {
	case KindTone:
		if err := need(p, 5); err != nil {
			return nil, err
		}
		r := reader{b: p, pos: 1}
		t := Tone{Frequency: r.u16()}
		t.Duration = time.Duration(r.u16()) * time.Millisecond
		return t, nil
	case KindNoTone:
		return NoTone{}, nil
	case KindAudioSource:
		if err := need(p, 2); err != nil {
			return nil, err
		}
		return AudioSource{Source: Source(p[1])}, nil
	default:
		return nil, ErrUnknownOp
	}
}
