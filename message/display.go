package message

import "fmt"

// Gear is the selected gearbox position.
type Gear uint8

const (
	Neutral Gear = iota
	First
	Second
	Third
	Fourth
	Fifth
	Reverse
)

func (g Gear) String() string {
	switch g {
	case Neutral:
		return "N"
	case Reverse:
		return "R"
	case First, Second, Third, Fourth, Fifth:
		return fmt.Sprintf("%d", uint8(g))
	default:
		return "?"
	}
}

// GearState is the current gear.
type GearState struct {
	Gear Gear
}

func (GearState) Type() Type { return TypeGear }

func (g GearState) MarshalBinary() ([]byte, error) {
	return []byte{byte(g.Gear)}, nil
}

func parseGear(p []byte) (Body, error) {
	if err := need(p, 1); err != nil {
		return nil, err
	}
	return GearState{Gear: Gear(p[0])}, nil
}

// DisplayTextSize is the width of the factory display, including the terminator.
const DisplayTextSize = 14

// DisplayText is shown on the factory dash display.
type DisplayText struct {
	Text string
}

func (DisplayText) Type() Type { return TypeOEMDisplay }

func (d DisplayText) MarshalBinary() ([]byte, error) {
	w := writer{}
	w.str(d.Text, DisplayTextSize)
	return w.b, nil
}

func parseDisplayText(p []byte) (Body, error) {
	if err := need(p, DisplayTextSize); err != nil {
		return nil, err
	}
	return DisplayText{Text: cString(p[:DisplayTextSize])}, nil
}

// Proximity holds the rear parking sensor distances, driver side first.
type Proximity struct {
	Distances [4]uint16
}

func (Proximity) Type() Type { return TypeReverseProximity }

func (p Proximity) MarshalBinary() ([]byte, error) {
	w := writer{b: make([]byte, 0, 8)}
	for _, d := range p.Distances {
		w.u16(d)
	}
	return w.b, nil
}

func parseProximity(p []byte) (Body, error) {
	if err := need(p, 8); err != nil {
		return nil, err
	}
	r := reader{b: p}
	var v Proximity
	for i := range v.Distances {
		v.Distances[i] = r.u16()
	}
	return v, nil
}
