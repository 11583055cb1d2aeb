package carcomms

import "time"

// LinkOption is implemented by transports to allow configuration options.
type LinkOption interface {
	SetChannel(ch int) error
	SetReceiveTypeMask(mask uint8) error
	SetClock(c Clock) error
	SetLogger(l Logger) error
	SetErrorHandler(handler func(error)) error
}

// An Option is a configuration function, which configures a transport.
type Option func(LinkOption) error

// OptChannel sets the radio channel opened by Begin.
func OptChannel(ch int) Option {
	return func(opt LinkOption) error {
		return opt.SetChannel(ch)
	}
}

// OptReceiveTypeMask sets the initial receive type mask.
func OptReceiveTypeMask(mask uint8) Option {
	return func(opt LinkOption) error {
		return opt.SetReceiveTypeMask(mask)
	}
}

// OptClock overrides the clock used for receive timestamps.
func OptClock(c Clock) Option {
	return func(opt LinkOption) error {
		return opt.SetClock(c)
	}
}

// OptLogger overrides the logger.
func OptLogger(l Logger) Option {
	return func(opt LinkOption) error {
		return opt.SetLogger(l)
	}
}

// OptErrorHandler sets a handler for datagrams dropped as malformed.
func OptErrorHandler(handler func(error)) Option {
	return func(opt LinkOption) error {
		return opt.SetErrorHandler(handler)
	}
}

// SessionOption is implemented by the reconnection orchestrator.
type SessionOption interface {
	SetConnectTimeout(d time.Duration) error
	SetReconnectTimeout(d time.Duration) error
	SetClock(c Clock) error
	SetLogger(l Logger) error
}

// A ConnOption configures connection attempts.
type ConnOption func(SessionOption) error

// OptConnectTimeout bounds a manual connect attempt.
func OptConnectTimeout(d time.Duration) ConnOption {
	return func(opt SessionOption) error {
		return opt.SetConnectTimeout(d)
	}
}

// OptReconnectTimeout bounds each attempt of a reconnect cascade.
func OptReconnectTimeout(d time.Duration) ConnOption {
	return func(opt SessionOption) error {
		return opt.SetReconnectTimeout(d)
	}
}

// OptSessionClock overrides the clock used for attempt timeouts.
func OptSessionClock(c Clock) ConnOption {
	return func(opt SessionOption) error {
		return opt.SetClock(c)
	}
}

// OptSessionLogger overrides the logger.
func OptSessionLogger(l Logger) ConnOption {
	return func(opt SessionOption) error {
		return opt.SetLogger(l)
	}
}
