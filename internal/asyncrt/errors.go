package asyncrt

import "errors"

var (
	// ErrClosed is returned by channel operations on a channel marked done.
	ErrClosed = errors.New("channel is done")
	// ErrDeadlock is returned by Run when every live coroutine is blocked
	// and nothing external can wake one.
	ErrDeadlock = errors.New("all coroutines are asleep - deadlock")
	// ErrCanceled is returned by Run when its context ends first, and by
	// blocking calls of a coroutine that Close is unwinding.
	ErrCanceled = errors.New("run canceled")
	// ErrBadHandle is returned for operations on unknown channels.
	ErrBadHandle = errors.New("invalid channel handle")
	// ErrNotSupported is returned by FdWait where poll(2) is unavailable.
	ErrNotSupported = errors.New("operation not supported on this platform")
)
