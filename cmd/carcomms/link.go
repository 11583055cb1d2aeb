package main

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/retrofit-labs/carcomms"
	"github.com/retrofit-labs/carcomms/radio/loopback"
	"github.com/retrofit-labs/carcomms/radio/serial"
	"github.com/retrofit-labs/carcomms/radio/udp"
)

func newLink(c *cli.Context) (carcomms.Link, error) {
	switch kind := c.GlobalString("link"); kind {
	case "udp":
		return udp.New(udp.Config{
			BasePort:  c.GlobalInt("udp-port"),
			Broadcast: c.GlobalString("udp-broadcast"),
		}), nil
	case "serial":
		return serial.New(serial.PortOpener(c.GlobalString("serial"), c.GlobalInt("baud"))), nil
	case "loopback":
		// only useful for trying a command without a radio
		return loopback.NewMedium().NewLink(), nil
	default:
		return nil, cli.NewExitError(fmt.Sprintf("unknown link %q", kind), 2)
	}
}
