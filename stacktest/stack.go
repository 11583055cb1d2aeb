// Package stacktest provides a recording carcomms.Stack for tests.
package stacktest

import (
	"sync"

	"github.com/retrofit-labs/carcomms"
)

// Passthrough is one recorded key event.
type Passthrough struct {
	Label   uint8
	Cmd     carcomms.PassthroughCmd
	Pressed bool
}

// MetadataRequest is one recorded metadata request.
type MetadataRequest struct {
	Label uint8
	Attrs []carcomms.MediaAttr
}

// Stack records every call. Set ConnectErr and friends to make calls fail.
type Stack struct {
	mu sync.Mutex

	handler carcomms.StackHandler

	connects     []carcomms.Addr
	disconnects  int
	nameRequests []carcomms.Addr
	metadata     []MetadataRequest
	passthrough  []Passthrough

	ConnectErr     error
	DisconnectErr  error
	PassthroughErr error
}

func New() *Stack {
	return &Stack{}
}

func (s *Stack) SetHandler(h carcomms.StackHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = h
}

// Handler returns the installed handler so tests can raise events.
func (s *Stack) Handler() carcomms.StackHandler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler
}

func (s *Stack) Connect(a carcomms.Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects = append(s.connects, a)
	return s.ConnectErr
}

func (s *Stack) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects++
	return s.DisconnectErr
}

func (s *Stack) RequestRemoteName(a carcomms.Addr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nameRequests = append(s.nameRequests, a)
	return nil
}

func (s *Stack) RequestMetadata(label uint8, attrs ...carcomms.MediaAttr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = append(s.metadata, MetadataRequest{Label: label, Attrs: attrs})
	return nil
}

func (s *Stack) Passthrough(label uint8, cmd carcomms.PassthroughCmd, pressed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PassthroughErr != nil {
		return s.PassthroughErr
	}
	s.passthrough = append(s.passthrough, Passthrough{Label: label, Cmd: cmd, Pressed: pressed})
	return nil
}

func (s *Stack) Connects() []carcomms.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]carcomms.Addr(nil), s.connects...)
}

func (s *Stack) Disconnects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnects
}

func (s *Stack) NameRequests() []carcomms.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]carcomms.Addr(nil), s.nameRequests...)
}

func (s *Stack) MetadataRequests() []MetadataRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MetadataRequest(nil), s.metadata...)
}

func (s *Stack) Passthroughs() []Passthrough {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Passthrough(nil), s.passthrough...)
}
