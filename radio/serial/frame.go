package serial

import (
	"fmt"
	"time"
)

const (
	startByte = 0xA5

	headerOffsetStart  = 0
	headerOffsetCmd    = 1
	headerOffsetLength = 2
	headerLength       = 3

	frameTimeout = 500 * time.Millisecond
)

// Bridge commands.
const (
	cmdSetChannel = 0x01
	cmdAddPeer    = 0x02
	cmdSend       = 0x03
	cmdReceived   = 0x81
)

func encodeFrame(cmd byte, data []byte) ([]byte, error) {
	if len(data) > 0xFF {
		return nil, fmt.Errorf("frame data too long: %d", len(data))
	}
	b := make([]byte, 0, headerLength+len(data))
	b = append(b, startByte, cmd, byte(len(data)))
	return append(b, data...), nil
}

// frame reassembles bridge frames from arbitrary chunks of the serial
// stream. A partial frame older than frameTimeout is dropped.
type frame struct {
	b       []byte
	timeout time.Time
	out     chan []byte
	done    chan struct{}
	now     func() time.Time
}

func newFrame(c chan []byte, done chan struct{}) *frame {
	return &frame{
		b:    make([]byte, 0, 256),
		out:  c,
		done: done,
		now:  time.Now,
	}
}

func (f *frame) Assemble(b []byte) {
	switch {
	case len(b) == 0:
		return
	case !f.timeout.IsZero() && f.now().After(f.timeout):
		f.reset()
	}

	if len(f.b) == 0 {
		if err := f.waitStart(b); err != nil {
			return
		}
	} else {
		f.b = append(f.b, b...)
	}

	rf, err := f.frame()
	if err != nil {
		return
	}
	out := make([]byte, len(rf))
	copy(out, rf)
	select {
	case f.out <- out:
	case <-f.done:
		return
	}

	// shift
	if len(f.b) > len(rf) {
		rem := make([]byte, len(f.b)-len(rf))
		copy(rem, f.b[len(rf):])
		f.reset()
		f.Assemble(rem)
	} else {
		f.reset()
	}
}

func (f *frame) reset() {
	f.b = f.b[:0]
	f.timeout = time.Time{}
}

func (f *frame) waitStart(b []byte) error {
	for i, v := range b {
		if v != startByte {
			continue
		}
		f.timeout = f.now().Add(frameTimeout)
		f.b = append(f.b, b[i:]...)
		return nil
	}
	return fmt.Errorf("couldnt find start byte")
}

func (f *frame) frame() ([]byte, error) {
	if len(f.b) < headerLength {
		return nil, fmt.Errorf("not enough bytes")
	}
	tl := headerLength + int(f.b[headerOffsetLength])
	if len(f.b) < tl {
		return nil, fmt.Errorf("not enough bytes")
	}
	return f.b[:tl], nil
}
