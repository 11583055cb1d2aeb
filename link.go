package carcomms

import "errors"

// ErrLinkClosed is returned by links that are used before Open or after Close.
var ErrLinkClosed = errors.New("link closed")

// ReceiveFunc handles a raw datagram arriving from a link. The slice is only
// valid for the duration of the call.
type ReceiveFunc func(b []byte)

// Link is a best-effort broadcast medium carrying short datagrams between nodes.
type Link interface {
	// Open joins the medium on the given channel.
	Open(channel int) error

	// Close leaves the medium. Receivers are not called after Close returns.
	Close() error

	// Broadcast sends one datagram to every other node on the channel.
	// Delivery is not confirmed.
	Broadcast(b []byte) error

	// SetReceiver installs the arrival callback. It may be called from any goroutine.
	SetReceiver(f ReceiveFunc)
}

// PeerRegistrar is implemented by links that need the broadcast peer
// registered explicitly before sending.
type PeerRegistrar interface {
	AddPeer(a Addr, channel int) error
}
