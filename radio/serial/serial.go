// Package serial drives a radio bridge attached to a serial port. The
// bridge forwards datagrams between the port and the car's radio network.
//
// Every exchange is a frame: a 0xA5 start byte, a command byte, a length
// byte and that many data bytes. Peer addresses travel least significant
// byte first.
package serial

import (
	"io"
	"sync"

	goserial "github.com/jacobsa/go-serial/serial"
	"github.com/pkg/errors"

	"github.com/retrofit-labs/carcomms"
	"github.com/retrofit-labs/carcomms/sliceops"
)

const (
	DefaultBaudRate = 115200

	rxQueueSize = 64
)

// Opener returns the open serial port.
type Opener func() (io.ReadWriteCloser, error)

// PortOpener opens a serial device with the framing the bridge expects.
func PortOpener(name string, baud int) Opener {
	if baud == 0 {
		baud = DefaultBaudRate
	}
	return func() (io.ReadWriteCloser, error) {
		return goserial.Open(goserial.OpenOptions{
			PortName:        name,
			BaudRate:        uint(baud),
			DataBits:        8,
			StopBits:        1,
			ParityMode:      goserial.PARITY_NONE,
			MinimumReadSize: 0,
			// in 1/10 s; lets rxLoop notice Close
			InterCharacterTimeout: 100,
		})
	}
}

// Link is a carcomms.Link over a serial radio bridge.
type Link struct {
	open   Opener
	logger carcomms.Logger

	wmu  sync.Mutex
	mu   sync.Mutex
	sp   io.ReadWriteCloser
	recv carcomms.ReceiveFunc
	done chan struct{}
	wg   sync.WaitGroup
}

func New(open Opener) *Link {
	return &Link{
		open:   open,
		logger: carcomms.GetLogger().ChildLogger(map[string]interface{}{"pkg": "serial"}),
	}
}

func (l *Link) Open(channel int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sp != nil {
		return errors.New("serial link already open")
	}

	sp, err := l.open()
	if err != nil {
		return errors.Wrap(err, "can't open serial port")
	}

	f, _ := encodeFrame(cmdSetChannel, []byte{byte(channel)})
	if _, err := sp.Write(f); err != nil {
		sp.Close()
		return errors.Wrap(err, "can't set channel")
	}

	l.sp = sp
	l.done = make(chan struct{})
	rxQueue := make(chan []byte, rxQueueSize)
	l.wg.Add(2)
	go l.rxLoop(sp, rxQueue, l.done)
	go l.dispatchLoop(rxQueue, l.done)
	return nil
}

func (l *Link) Close() error {
	l.mu.Lock()
	sp := l.sp
	if sp == nil {
		l.mu.Unlock()
		return nil
	}
	close(l.done)
	l.sp = nil
	l.mu.Unlock()

	err := sp.Close()
	l.wg.Wait()
	return errors.Wrap(err, "can't close serial port")
}

func (l *Link) SetReceiver(f carcomms.ReceiveFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recv = f
}

// AddPeer tells the bridge about a destination it may send to.
func (l *Link) AddPeer(a carcomms.Addr, channel int) error {
	data := append(sliceops.SwapBuf(a.Bytes()), byte(channel))
	return errors.Wrapf(l.write(cmdAddPeer, data), "can't add peer %v", a)
}

func (l *Link) Broadcast(b []byte) error {
	return errors.Wrap(l.write(cmdSend, b), "can't send")
}

func (l *Link) write(cmd byte, data []byte) error {
	f, err := encodeFrame(cmd, data)
	if err != nil {
		return err
	}

	l.mu.Lock()
	sp := l.sp
	l.mu.Unlock()
	if sp == nil {
		return carcomms.ErrLinkClosed
	}

	l.wmu.Lock()
	defer l.wmu.Unlock()
	_, err = sp.Write(f)
	return err
}

func (l *Link) rxLoop(sp io.Reader, q chan []byte, done chan struct{}) {
	defer l.wg.Done()

	f := newFrame(q, done)
	tmp := make([]byte, 512)
	for {
		select {
		case <-done:
			return
		default:
		}

		n, err := sp.Read(tmp)
		if err == io.EOF {
			return
		}
		if err != nil || n == 0 {
			continue
		}
		f.Assemble(tmp[:n])
	}
}

func (l *Link) dispatchLoop(q chan []byte, done chan struct{}) {
	defer l.wg.Done()

	for {
		select {
		case <-done:
			return
		case fr := <-q:
			if fr[headerOffsetCmd] != cmdReceived {
				l.logger.Debugf("bridge frame 0x%02x ignored", fr[headerOffsetCmd])
				continue
			}
			l.mu.Lock()
			recv := l.recv
			l.mu.Unlock()
			if recv != nil {
				recv(fr[headerLength:])
			}
		}
	}
}
