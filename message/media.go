package message

import "time"

const (
	TrackFieldSize = 64
	TrackInfoSize  = 3*TrackFieldSize + 8
)

// TrackInfo describes the track playing on the connected audio source.
type TrackInfo struct {
	Title    string
	Artist   string
	Album    string
	Length   time.Duration
	Position time.Duration
}

func (TrackInfo) Type() Type { return TypeBTInfo }

func (t TrackInfo) MarshalBinary() ([]byte, error) {
	w := writer{b: make([]byte, 0, TrackInfoSize)}
	w.str(t.Title, TrackFieldSize)
	w.str(t.Artist, TrackFieldSize)
	w.str(t.Album, TrackFieldSize)
	w.u32(uint32(t.Length / time.Millisecond))
	w.u32(uint32(t.Position / time.Millisecond))
	return w.b, nil
}

func parseTrackInfo(p []byte) (Body, error) {
	if err := need(p, TrackInfoSize); err != nil {
		return nil, err
	}
	r := reader{b: p}
	t := TrackInfo{}
	t.Title = r.str(TrackFieldSize)
	t.Artist = r.str(TrackFieldSize)
	t.Album = r.str(TrackFieldSize)
	t.Length = time.Duration(r.u32()) * time.Millisecond
	t.Position = time.Duration(r.u32()) * time.Millisecond
	return t, nil
}

// Skip asks the audio node to change track.
type Skip struct {
	Forward bool
	Reverse bool
}

func (Skip) Type() Type { return TypeBTSkip }

func (s Skip) MarshalBinary() ([]byte, error) {
	return []byte{bitsOf(1, s.Forward), bitsOf(1, s.Reverse)}, nil
}

func parseSkip(p []byte) (Body, error) {
	if err := need(p, 2); err != nil {
		return nil, err
	}
	return Skip{Forward: p[0] != 0, Reverse: p[1] != 0}, nil
}
