package media

import (
	"github.com/pkg/errors"

	"github.com/retrofit-labs/carcomms"
)

// ErrNotConnected is returned when the remote control channel is down.
var ErrNotConnected = errors.New("remote control not connected")

// Controller sends remote control commands through a Stack.
type Controller struct {
	stack   carcomms.Stack
	session *Session
	logger  carcomms.Logger
}

func NewController(stack carcomms.Stack, session *Session) *Controller {
	return &Controller{
		stack:   stack,
		session: session,
		logger:  carcomms.GetLogger().ChildLogger(map[string]interface{}{"pkg": "media"}),
	}
}

func (c *Controller) Session() *Session {
	return c.session
}

func (c *Controller) Play() error     { return c.press(carcomms.CmdPlay) }
func (c *Controller) Pause() error    { return c.press(carcomms.CmdPause) }
func (c *Controller) Next() error     { return c.press(carcomms.CmdForward) }
func (c *Controller) Previous() error { return c.press(carcomms.CmdBackward) }

// press sends a key press and release under one transaction label.
func (c *Controller) press(cmd carcomms.PassthroughCmd) error {
	if !c.session.RemoteConnected() {
		c.logger.Warnf("dropping key 0x%02x: %v", uint8(cmd), ErrNotConnected)
		return ErrNotConnected
	}

	label := c.session.NextLabel()
	if err := c.stack.Passthrough(label, cmd, true); err != nil {
		return errors.Wrapf(err, "can't press 0x%02x", uint8(cmd))
	}
	return errors.Wrapf(c.stack.Passthrough(label, cmd, false), "can't release 0x%02x", uint8(cmd))
}

// RequestMetadata asks the device for the current track's title, artist,
// album and playing time.
func (c *Controller) RequestMetadata() error {
	if !c.session.RemoteConnected() {
		return ErrNotConnected
	}
	return c.stack.RequestMetadata(c.session.NextLabel(),
		carcomms.AttrTitle, carcomms.AttrArtist, carcomms.AttrAlbum, carcomms.AttrPlayingTime)
}

// HandleRemoteControl records the remote control channel state and fetches
// metadata once it comes up.
func (c *Controller) HandleRemoteControl(connected bool) {
	c.session.SetRemoteConnected(connected)
	if !connected {
		return
	}
	if err := c.RequestMetadata(); err != nil {
		c.logger.Warnf("can't request metadata: %v", err)
	}
}

// HandleTrackChanged refreshes metadata for the new track.
func (c *Controller) HandleTrackChanged() {
	c.session.SetPosition(0)
	if err := c.RequestMetadata(); err != nil {
		c.logger.Debugf("can't request metadata: %v", err)
	}
}
