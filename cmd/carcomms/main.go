// Command carcomms joins the car's message network from a Linux host.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/retrofit-labs/carcomms"
	"github.com/retrofit-labs/carcomms/bluez"
	"github.com/retrofit-labs/carcomms/headunit"
	"github.com/retrofit-labs/carcomms/message"
	"github.com/retrofit-labs/carcomms/registry"
	"github.com/retrofit-labs/carcomms/store"
	"github.com/retrofit-labs/carcomms/transport"
)

var log = logrus.New()

func main() {
	app := cli.NewApp()
	app.Name = "carcomms"
	app.Usage = "talk to the in-car message network"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "link", Value: "udp", Usage: "radio link: udp, serial or loopback"},
		cli.IntFlag{Name: "channel", Value: transport.DefaultChannel, Usage: "radio channel"},
		cli.IntFlag{Name: "udp-port", Value: 47000, Usage: "udp base port, the channel is added"},
		cli.StringFlag{Name: "udp-broadcast", Value: "255.255.255.255", Usage: "udp broadcast address"},
		cli.StringFlag{Name: "serial", Value: "/dev/ttyUSB0", Usage: "serial port of the radio bridge"},
		cli.IntFlag{Name: "baud", Value: 115200, Usage: "serial baud rate"},
		cli.StringFlag{Name: "store", Value: "carcomms.json", Usage: "persistent settings file"},
		cli.StringFlag{Name: "log-level", Value: "info", Usage: "panic, fatal, error, warn, info, debug or trace"},
		cli.BoolFlag{Name: "verbose, v", Usage: "same as --log-level debug"},
	}
	app.Before = func(c *cli.Context) error {
		log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
		carcomms.SetLogger(carcomms.NewLogger(log))

		level := c.String("log-level")
		if c.Bool("verbose") {
			level = "debug"
		}
		if err := carcomms.SetLogLevel(level); err != nil {
			return cli.NewExitError(err.Error(), 2)
		}
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:  "listen",
			Usage: "print every message received",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "types", Usage: "comma separated message types to accept, default all"},
			},
			Action: cmdListen,
		},
		{
			Name:      "send",
			Usage:     "broadcast one message",
			ArgsUsage: "<kind> [args...]",
			Action:    cmdSend,
		},
		{
			Name:   "devices",
			Usage:  "print the paired device list from the settings file",
			Action: cmdDevices,
		},
		{
			Name:  "headunit",
			Usage: "run the bluetooth audio node",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "adapter", Value: "hci0", Usage: "bluetooth adapter"},
			},
			Action: cmdHeadunit,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func linkOptions(c *cli.Context) []carcomms.Option {
	return []carcomms.Option{
		carcomms.OptChannel(c.GlobalInt("channel")),
		carcomms.OptErrorHandler(func(err error) { log.Debugf("dropped datagram: %v", err) }),
	}
}

func cmdListen(c *cli.Context) error {
	link, err := newLink(c)
	if err != nil {
		return err
	}

	opts := linkOptions(c)
	if s := c.String("types"); s != "" {
		mask, err := parseMask(s)
		if err != nil {
			return cli.NewExitError(err.Error(), 2)
		}
		opts = append(opts, carcomms.OptReceiveTypeMask(uint8(mask)))
	}

	d := message.NewDispatcher(printer{}, func(t message.Type, err error) {
		log.WithField("type", t).Warnf("bad payload: %v", err)
	})
	t, err := transport.New(link, d, opts...)
	if err != nil {
		return err
	}
	if err := t.Begin(); err != nil {
		return err
	}
	defer t.End()

	waitSignal()
	return nil
}

func cmdSend(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.NewExitError("missing message kind", 2)
	}
	b, err := parseBody(c.Args().First(), c.Args().Tail())
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}

	link, err := newLink(c)
	if err != nil {
		return err
	}
	t, err := transport.New(link, transport.HandlerFunc(func(message.Type, []byte) {}), linkOptions(c)...)
	if err != nil {
		return err
	}
	if err := t.Begin(); err != nil {
		return err
	}
	defer t.End()

	if err := t.SendBody(b); err != nil {
		return errors.Wrap(err, "can't send")
	}
	log.WithField("type", b.Type()).Infof("sent %+v", b)
	return nil
}

func cmdDevices(c *cli.Context) error {
	reg, err := registry.Open(store.NewFile(c.GlobalString("store")))
	if err != nil {
		return err
	}

	s := reg.Snapshot()
	if len(s.Devices) == 0 {
		fmt.Println("no paired devices")
		return nil
	}
	for i, d := range s.Devices {
		var marks []string
		if i == s.Favourite {
			marks = append(marks, "favourite")
		}
		if d.Addr == s.Connected {
			marks = append(marks, "connected")
		}
		fmt.Printf("%d  %v  %-32s %s\n", i, d.Addr, d.Name, strings.Join(marks, ","))
	}
	return nil
}

func cmdHeadunit(c *cli.Context) error {
	link, err := newLink(c)
	if err != nil {
		return err
	}

	stack, err := bluez.Dial(c.String("adapter"))
	if err != nil {
		return err
	}
	if err := stack.Start(); err != nil {
		return err
	}
	defer stack.Close()

	n, err := headunit.New(headunit.Config{
		Link:        link,
		Stack:       stack,
		Store:       store.NewFile(c.GlobalString("store")),
		LinkOptions: linkOptions(c),
	})
	if err != nil {
		return err
	}
	if err := n.Start(); err != nil {
		return err
	}
	defer n.Stop()

	waitSignal()
	return nil
}

func waitSignal() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
}

// printer logs every message it receives.
type printer struct{}

func (printer) show(b message.Body) { log.WithField("type", b.Type()).Infof("%+v", b) }

func (p printer) OnCarInfo(m message.CarInfo)             { p.show(m) }
func (p printer) OnGear(m message.GearState)              { p.show(m) }
func (p printer) OnTrackInfo(m message.TrackInfo)         { p.show(m) }
func (p printer) OnSkip(m message.Skip)                   { p.show(m) }
func (p printer) OnDisplayText(m message.DisplayText)     { p.show(m) }
func (p printer) OnProximity(m message.Proximity)         { p.show(m) }
func (p printer) OnDeviceList(m message.DeviceList)       { p.show(m) }
func (p printer) OnDeviceEvent(m message.DeviceEvent)     { p.show(m) }
func (p printer) OnDeviceCommand(m message.DeviceCommand) { p.show(m) }
func (p printer) OnTone(m message.Tone)                   { p.show(m) }
func (p printer) OnNoTone()                               { p.show(message.NoTone{}) }
func (p printer) OnAudioSource(m message.AudioSource)     { p.show(m) }
