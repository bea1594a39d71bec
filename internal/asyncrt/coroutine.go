package asyncrt

import (
	"runtime"
	"time"

	"fortio.org/safecast"

	"corodebug/internal/debug"
)

// Co is the handle a coroutine uses to block, yield and launch others. It
// is only valid on the coroutine it was passed to.
//
// Once Close has killed the coroutine, blocking calls made while it unwinds
// return at once; those that report errors return ErrCanceled.
type Co struct {
	ex   *Executor
	task *Task
}

// ID returns the coroutine's id.
func (c *Co) ID() TaskID {
	return c.task.ID
}

// Executor returns the executor running the coroutine.
func (c *Co) Executor() *Executor {
	return c.ex
}

// Go launches another coroutine from inside this one.
func (c *Co) Go(fn func(co *Co)) TaskID {
	if c.task.killed {
		return 0
	}
	return c.ex.GoAt(callerLocation(1), fn)
}

// Yield lets other ready coroutines run before this one continues.
func (c *Co) Yield() {
	if c.task.killed {
		return
	}
	loc := callerLocation(1)
	c.ex.reg.SetCurrent(c.task.ID, loc)
	c.ex.reg.Trace(loc, "yield()")
	c.ex.enqueue(c.task.ID)
	c.park()
}

// Sleep blocks the coroutine for d of executor time.
func (c *Co) Sleep(d time.Duration) {
	if c.task.killed {
		return
	}
	loc := callerLocation(1)
	ms, err := safecast.Conv[uint64](d.Milliseconds())
	if err != nil {
		ms = 0
	}
	c.ex.reg.Trace(loc, "msleep(%d)", ms)
	c.task.timer = c.ex.TimerScheduleAfter(c.task.ID, ms)
	c.ex.reg.SetOp(c.task.ID, debug.Sleep{})
	c.ex.reg.SetCurrent(c.task.ID, loc)
	c.park()
}

// FdWait blocks until fd is ready for any of events and returns the events
// that fired.
func (c *Co) FdWait(fd int, events debug.Events) (debug.Events, error) {
	if c.task.killed {
		return 0, ErrCanceled
	}
	loc := callerLocation(1)
	c.ex.reg.Trace(loc, "fdwait(%d, %s)", fd, events)
	if !fdPollSupported {
		return 0, ErrNotSupported
	}
	c.ex.fdWaits[c.task.ID] = &fdWait{fd: fd, events: events}
	c.task.revents = 0
	c.ex.reg.SetOp(c.task.ID, debug.FdWait{FD: fd, Events: events})
	c.ex.reg.SetCurrent(c.task.ID, loc)
	c.park()
	return c.task.revents, nil
}

// Send delivers value on ch, blocking until a receiver takes it or buffer
// space frees up.
func (c *Co) Send(ch ChannelID, value any) error {
	loc := callerLocation(1)
	c.ex.reg.Trace(loc, "chs(<%d>)", ch)
	_, _, err := c.ex.choose(c.task, debug.OpSend, loc,
		[]ChooseClause{{Dir: debug.DirSend, Chan: ch, Value: value}})
	return err
}

// Recv takes the next value from ch, blocking until one is available.
func (c *Co) Recv(ch ChannelID) (any, error) {
	loc := callerLocation(1)
	c.ex.reg.Trace(loc, "chr(<%d>)", ch)
	_, v, err := c.ex.choose(c.task, debug.OpRecv, loc,
		[]ChooseClause{{Dir: debug.DirRecv, Chan: ch}})
	return v, err
}

// Choose blocks until one of the clauses can proceed and performs it. It
// returns the index of that clause and, for a receive, the value. Clauses
// are tried in declaration order.
func (c *Co) Choose(clauses ...ChooseClause) (int, any, error) {
	loc := callerLocation(1)
	c.ex.reg.Trace(loc, "choose()")
	return c.ex.choose(c.task, debug.OpChoose, loc, clauses)
}

// park hands control back to the scheduler until the task is resumed.
// A killed task never parks again: the scheduler already treats it as gone.
func (c *Co) park() {
	t := c.task
	if t.killed {
		return
	}
	if t.Status == TaskRunning {
		t.Status = TaskWaiting
	}
	c.ex.yield <- struct{}{}
	<-t.resume
	if t.killed {
		runtime.Goexit()
	}
}
