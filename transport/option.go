package transport

import (
	"fmt"

	"github.com/retrofit-labs/carcomms"
)

// SetChannel sets the channel opened by Begin.
func (t *Transport) SetChannel(ch int) error {
	if ch < 1 || ch > 14 {
		return fmt.Errorf("invalid channel %d (valid range: 1-14)", ch)
	}
	t.channel = ch
	return nil
}

// SetClock overrides the clock used for receive times.
func (t *Transport) SetClock(c carcomms.Clock) error {
	t.clock = c
	return nil
}

// SetLogger overrides the logger.
func (t *Transport) SetLogger(l carcomms.Logger) error {
	t.logger = l
	return nil
}

// SetErrorHandler sets a handler for datagrams dropped as malformed.
func (t *Transport) SetErrorHandler(handler func(error)) error {
	t.errHandler = handler
	return nil
}
