package reconnect

import (
	"time"

	"github.com/pkg/errors"

	"github.com/retrofit-labs/carcomms"
)

func (o *Orchestrator) SetConnectTimeout(d time.Duration) error {
	if d <= 0 {
		return errors.Errorf("invalid connect timeout %v", d)
	}
	o.connectTimeout = d
	return nil
}

func (o *Orchestrator) SetReconnectTimeout(d time.Duration) error {
	if d <= 0 {
		return errors.Errorf("invalid reconnect timeout %v", d)
	}
	o.reconnectTimeout = d
	return nil
}

func (o *Orchestrator) SetClock(c carcomms.Clock) error {
	o.clock = c
	return nil
}

func (o *Orchestrator) SetLogger(l carcomms.Logger) error {
	o.logger = l
	return nil
}
