// Package loopback is an in-process broadcast medium for tests and demos.
package loopback

import (
	"sync"

	"github.com/retrofit-labs/carcomms"
)

// DropFunc decides whether a datagram from one link to another is lost.
type DropFunc func(from, to *Link, b []byte) bool

// Medium connects every Link created from it. Delivery is synchronous:
// Broadcast returns after every receiver has run.
type Medium struct {
	mu    sync.RWMutex
	links map[*Link]struct{}
	drop  DropFunc
}

func NewMedium() *Medium {
	return &Medium{links: make(map[*Link]struct{})}
}

// SetDropFunc installs a loss filter. nil delivers everything.
func (m *Medium) SetDropFunc(f DropFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drop = f
}

// NewLink returns a closed link attached to the medium.
func (m *Medium) NewLink() *Link {
	return &Link{m: m}
}

// Link is one node's view of a Medium.
type Link struct {
	m *Medium

	mu      sync.Mutex
	open    bool
	channel int
	recv    carcomms.ReceiveFunc
	peers   []carcomms.Addr
	sent    int
}

func (l *Link) Open(channel int) error {
	l.mu.Lock()
	l.open = true
	l.channel = channel
	l.mu.Unlock()

	l.m.mu.Lock()
	l.m.links[l] = struct{}{}
	l.m.mu.Unlock()
	return nil
}

func (l *Link) Close() error {
	l.m.mu.Lock()
	delete(l.m.links, l)
	l.m.mu.Unlock()

	l.mu.Lock()
	l.open = false
	l.mu.Unlock()
	return nil
}

func (l *Link) SetReceiver(f carcomms.ReceiveFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recv = f
}

// AddPeer records the peer; the medium itself needs no registration.
func (l *Link) AddPeer(a carcomms.Addr, channel int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.peers = append(l.peers, a)
	return nil
}

// Peers returns the peers registered with AddPeer.
func (l *Link) Peers() []carcomms.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]carcomms.Addr(nil), l.peers...)
}

// Sent returns the number of datagrams broadcast on this link.
func (l *Link) Sent() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sent
}

func (l *Link) Broadcast(b []byte) error {
	l.mu.Lock()
	if !l.open {
		l.mu.Unlock()
		return carcomms.ErrLinkClosed
	}
	channel := l.channel
	l.sent++
	l.mu.Unlock()

	l.m.mu.RLock()
	drop := l.m.drop
	targets := make([]*Link, 0, len(l.m.links))
	for o := range l.m.links {
		if o != l {
			targets = append(targets, o)
		}
	}
	l.m.mu.RUnlock()

	for _, o := range targets {
		o.mu.Lock()
		recv := o.recv
		same := o.open && o.channel == channel
		o.mu.Unlock()

		if !same || recv == nil {
			continue
		}
		if drop != nil && drop(l, o, b) {
			continue
		}

		cp := make([]byte, len(b))
		copy(cp, b)
		recv(cp)
	}
	return nil
}

// Inject delivers b to this link's receiver as if it arrived on the medium.
func (l *Link) Inject(b []byte) {
	l.mu.Lock()
	recv := l.recv
	open := l.open
	l.mu.Unlock()

	if open && recv != nil {
		cp := make([]byte, len(b))
		copy(cp, b)
		recv(cp)
	}
}
