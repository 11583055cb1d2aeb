// Package clock provides the wall clock implementation of carcomms.Clock.
package clock

import (
	"time"

	"github.com/retrofit-labs/carcomms"
)

type system struct{}

// System returns a clock backed by the time package.
func System() carcomms.Clock {
	return system{}
}

func (system) Now() time.Time {
	return time.Now()
}

func (system) AfterFunc(d time.Duration, f func()) carcomms.Timer {
	return time.AfterFunc(d, f)
}
