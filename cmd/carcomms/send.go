package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/retrofit-labs/carcomms"
	"github.com/retrofit-labs/carcomms/message"
)

// parseMask reads a comma separated list of message type names.
func parseMask(s string) (message.Type, error) {
	var mask message.Type
	for _, name := range strings.Split(s, ",") {
		t, err := message.ParseType(strings.TrimSpace(name))
		if err != nil {
			return 0, err
		}
		mask |= t
	}
	return mask, nil
}

// parseBody builds a message from the send command's arguments:
//
//	skip next|prev
//	gear n|r
//	text <text>
//	proximity <cm> <cm> <cm> <cm>
//	tone <hz> <duration>
//	notone
//	source bluetooth|aux|radio
//	device <command> [addr]
func parseBody(kind string, args []string) (message.Body, error) {
	need := func(n int) error {
		if len(args) < n {
			return fmt.Errorf("%s needs %d argument(s)", kind, n)
		}
		return nil
	}

	switch kind {
	case "skip":
		if err := need(1); err != nil {
			return nil, err
		}
		switch args[0] {
		case "next":
			return message.Skip{Forward: true}, nil
		case "prev":
			return message.Skip{Reverse: true}, nil
		}
		return nil, fmt.Errorf("skip direction must be next or prev, not %q", args[0])

	case "gear":
		if err := need(1); err != nil {
			return nil, err
		}
		if args[0] == "r" {
			return message.GearState{Gear: message.Reverse}, nil
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 || n > int(message.Fifth) {
			return nil, fmt.Errorf("bad gear %q", args[0])
		}
		return message.GearState{Gear: message.Gear(n)}, nil

	case "text":
		if err := need(1); err != nil {
			return nil, err
		}
		return message.DisplayText{Text: strings.Join(args, " ")}, nil

	case "proximity":
		if err := need(4); err != nil {
			return nil, err
		}
		var p message.Proximity
		for i := range p.Distances {
			v, err := strconv.ParseUint(args[i], 10, 16)
			if err != nil {
				return nil, errors.Wrapf(err, "bad distance %q", args[i])
			}
			p.Distances[i] = uint16(v)
		}
		return p, nil

	case "tone":
		if err := need(2); err != nil {
			return nil, err
		}
		hz, err := strconv.ParseUint(args[0], 10, 16)
		if err != nil {
			return nil, errors.Wrapf(err, "bad frequency %q", args[0])
		}
		d, err := time.ParseDuration(args[1])
		if err != nil {
			return nil, errors.Wrapf(err, "bad duration %q", args[1])
		}
		return message.Tone{Frequency: uint16(hz), Duration: d}, nil

	case "notone":
		return message.NoTone{}, nil

	case "source":
		if err := need(1); err != nil {
			return nil, err
		}
		for _, s := range []message.Source{message.SourceBluetooth, message.SourceAux, message.SourceRadio} {
			if s.String() == args[0] {
				return message.AudioSource{Source: s}, nil
			}
		}
		return nil, fmt.Errorf("unknown source %q", args[0])

	case "device":
		if err := need(1); err != nil {
			return nil, err
		}
		op, err := message.ParseDeviceOp(args[0])
		if err != nil {
			return nil, err
		}
		c := message.DeviceCommand{Op: op}
		if len(args) > 1 {
			if c.Addr, err = carcomms.ParseAddr(args[1]); err != nil {
				return nil, err
			}
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown message kind %q", kind)
}
