package serial

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/retrofit-labs/carcomms"
)

// fakePort records writes and serves reads from a channel.
type fakePort struct {
	mu      sync.Mutex
	written bytes.Buffer
	in      chan []byte
	closed  chan struct{}
	once    sync.Once
}

func newFakePort() *fakePort {
	return &fakePort{in: make(chan []byte, 8), closed: make(chan struct{})}
}

func (p *fakePort) Read(b []byte) (int, error) {
	select {
	case d := <-p.in:
		return copy(b, d), nil
	case <-p.closed:
		return 0, io.EOF
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *fakePort) Written() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.written.Bytes()...)
}

func TestLink(t *testing.T) {
	port := newFakePort()
	l := New(func() (io.ReadWriteCloser, error) { return port, nil })

	got := make(chan []byte, 1)
	l.SetReceiver(func(b []byte) {
		got <- append([]byte(nil), b...)
	})
	if err := l.Open(4); err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}

	a := carcomms.MustParseAddr("01:02:03:04:05:06")
	if err := l.AddPeer(a, 4); err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	if err := l.Broadcast([]byte{0xFB, 0x01}); err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}

	want := []byte{
		startByte, cmdSetChannel, 1, 4,
		startByte, cmdAddPeer, 7, 6, 5, 4, 3, 2, 1, 4,
		startByte, cmdSend, 2, 0xFB, 0x01,
	}
	if w := port.Written(); !bytes.Equal(w, want) {
		t.Fatalf("expected [% x] but got [% x]", want, w)
	}

	port.in <- []byte{startByte, cmdReceived, 3, 0xFB, 0x02, 0x01}
	select {
	case b := <-got:
		if !bytes.Equal(b, []byte{0xFB, 0x02, 0x01}) {
			t.Fatalf("unexpected datagram [% x]", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a datagram but got none")
	}

	if err := l.Close(); err != nil {
		t.Fatalf("expected nil error but got %s", err)
	}
	if err := l.Broadcast([]byte{1}); !errors.Is(err, carcomms.ErrLinkClosed) {
		t.Fatalf("expected %v but got %v", carcomms.ErrLinkClosed, err)
	}
}
