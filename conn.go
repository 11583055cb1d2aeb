package carcomms

import "time"

// ConnectionState of the audio link to a remote bluetooth device.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// MediaAttr identifies a track metadata attribute (AVRCP attribute ids).
type MediaAttr uint8

const (
	AttrTitle       MediaAttr = 0x01
	AttrArtist      MediaAttr = 0x02
	AttrAlbum       MediaAttr = 0x03
	AttrPlayingTime MediaAttr = 0x07
)

// PassthroughCmd is a remote control key (AVRCP operation ids).
type PassthroughCmd uint8

const (
	CmdPlay     PassthroughCmd = 0x44
	CmdStop     PassthroughCmd = 0x45
	CmdPause    PassthroughCmd = 0x46
	CmdForward  PassthroughCmd = 0x4b
	CmdBackward PassthroughCmd = 0x4c
)

// PlayStatus reported by the remote device.
type PlayStatus uint8

const (
	StatusStopped PlayStatus = iota
	StatusPlaying
	StatusPaused
	StatusError
)

// Stack is the bluetooth connection and remote control stack of the audio node.
// Calls must not block on the outcome; results arrive through the StackHandler.
type Stack interface {
	SetHandler(h StackHandler)

	Connect(a Addr) error
	Disconnect() error
	RequestRemoteName(a Addr) error

	// RequestMetadata asks the connected device for the given attributes of
	// the current track, tagged with a transaction label.
	RequestMetadata(label uint8, attrs ...MediaAttr) error

	// Passthrough sends a key press or release tagged with a transaction label.
	Passthrough(label uint8, cmd PassthroughCmd, pressed bool) error
}

// StackHandler receives events from a Stack. Events may arrive on any goroutine.
type StackHandler interface {
	ConnectionStateChanged(a Addr, s ConnectionState)
	RemoteNameResolved(a Addr, name string)
	RemoteControlStateChanged(connected bool)
	MetadataReceived(attr MediaAttr, text string)
	PlayStatusChanged(s PlayStatus)
	PlayPositionChanged(pos time.Duration)
	TrackChanged()
}
