// Package udp carries link datagrams as UDP broadcasts, one port per
// channel. It stands in for the car radio on a bench or in a simulator.
package udp

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/retrofit-labs/carcomms"
)

const (
	DefaultBasePort  = 47000
	DefaultBroadcast = "255.255.255.255"

	readTimeout = 250 * time.Millisecond
	maxDatagram = 512
)

type Config struct {
	// BasePort plus the channel number is the port every node listens on.
	BasePort int
	// Broadcast is the destination address for outgoing datagrams.
	Broadcast string
	Logger    carcomms.Logger
}

// Link is a carcomms.Link over UDP.
type Link struct {
	cfg    Config
	logger carcomms.Logger

	mu   sync.Mutex
	rx   *net.UDPConn
	tx   *net.UDPConn
	dst  *net.UDPAddr
	own  map[string]struct{}
	recv carcomms.ReceiveFunc
	done chan struct{}
	wg   sync.WaitGroup
}

func New(cfg Config) *Link {
	if cfg.BasePort == 0 {
		cfg.BasePort = DefaultBasePort
	}
	if cfg.Broadcast == "" {
		cfg.Broadcast = DefaultBroadcast
	}
	l := &Link{cfg: cfg, logger: cfg.Logger}
	if l.logger == nil {
		l.logger = carcomms.GetLogger().ChildLogger(map[string]interface{}{"pkg": "udp"})
	}
	return l
}

// Port returns the port used for channel.
func (l *Link) Port(channel int) int {
	return l.cfg.BasePort + channel
}

func (l *Link) Open(channel int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.rx != nil {
		return errors.New("udp link already open")
	}

	port := l.Port(channel)
	lc := net.ListenConfig{Control: control}
	pc, err := lc.ListenPacket(context.Background(), "udp4", ":"+strconv.Itoa(port))
	if err != nil {
		return errors.Wrapf(err, "can't listen on %d", port)
	}
	rx := pc.(*net.UDPConn)

	// a separate socket with its own port lets us recognise our own broadcasts
	pc, err = lc.ListenPacket(context.Background(), "udp4", ":0")
	if err != nil {
		rx.Close()
		return errors.Wrap(err, "can't open send socket")
	}
	tx := pc.(*net.UDPConn)

	dst, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(l.cfg.Broadcast, strconv.Itoa(port)))
	if err != nil {
		rx.Close()
		tx.Close()
		return errors.Wrapf(err, "bad broadcast address %q", l.cfg.Broadcast)
	}

	l.rx, l.tx, l.dst = rx, tx, dst
	l.own = localEndpoints(tx.LocalAddr().(*net.UDPAddr).Port)
	l.done = make(chan struct{})
	l.wg.Add(1)
	go l.rxLoop(rx, l.done)

	l.logger.Infof("listening on udp %d, sending from %v", port, tx.LocalAddr())
	return nil
}

func (l *Link) Close() error {
	l.mu.Lock()
	if l.rx == nil {
		l.mu.Unlock()
		return nil
	}
	close(l.done)
	rx, tx := l.rx, l.tx
	l.rx, l.tx = nil, nil
	l.mu.Unlock()

	err := rx.Close()
	if terr := tx.Close(); err == nil {
		err = terr
	}
	l.wg.Wait()
	return errors.Wrap(err, "can't close udp link")
}

func (l *Link) SetReceiver(f carcomms.ReceiveFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recv = f
}

func (l *Link) Broadcast(b []byte) error {
	l.mu.Lock()
	tx, dst := l.tx, l.dst
	l.mu.Unlock()
	if tx == nil {
		return carcomms.ErrLinkClosed
	}

	_, err := tx.WriteToUDP(b, dst)
	return errors.Wrap(err, "can't broadcast")
}

func (l *Link) rxLoop(rx *net.UDPConn, done chan struct{}) {
	defer l.wg.Done()

	buf := make([]byte, maxDatagram)
	for {
		select {
		case <-done:
			return
		default:
		}

		rx.SetReadDeadline(time.Now().Add(readTimeout))
		n, from, err := rx.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-done:
			default:
				l.logger.Errorf("udp read: %v", err)
			}
			return
		}

		l.mu.Lock()
		recv := l.recv
		_, own := l.own[from.String()]
		l.mu.Unlock()

		if own || recv == nil {
			continue
		}
		recv(buf[:n])
	}
}

// localEndpoints lists every local address paired with port.
func localEndpoints(port int) map[string]struct{} {
	own := map[string]struct{}{}
	p := strconv.Itoa(port)
	own[net.JoinHostPort("127.0.0.1", p)] = struct{}{}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return own
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && ipn.IP.To4() != nil {
			own[net.JoinHostPort(ipn.IP.String(), p)] = struct{}{}
		}
	}
	return own
}
