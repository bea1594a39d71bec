package asyncrt

import (
	"fmt"

	"corodebug/internal/debug"
)

// ChannelID identifies a channel instance. It is the channel's id in the
// debug registry.
type ChannelID = debug.ChannelID

// Channel represents a single-threaded FIFO channel. Blocked senders and
// receivers are the clauses queued on the channel's registry descriptor.
type Channel struct {
	id   ChannelID
	desc *debug.Channel

	buf  []any
	head int
}

// ChooseClause is one arm of a choose: a send of Value or a receive on Chan.
type ChooseClause struct {
	Dir   debug.Dir
	Chan  ChannelID
	Value any
}

// ChanNew allocates a new channel with the given capacity; 0 makes a
// rendezvous channel. The caller holds the only reference.
func (e *Executor) ChanNew(capacity int) ChannelID {
	return e.ChanNewAt(callerLocation(1), capacity)
}

// ChanNewAt allocates a channel with an explicit creation site.
func (e *Executor) ChanNewAt(created string, capacity int) ChannelID {
	if e == nil {
		return 0
	}
	if capacity < 0 {
		capacity = 0
	}
	id := e.reg.RegisterChannel(created)
	desc := e.reg.Channel(id)
	desc.Capacity = capacity
	e.channels[id] = &Channel{id: id, desc: desc}
	e.reg.Trace(created, "chmake(%d) -> <%d>", capacity, id)
	return id
}

// ChanDup adds a reference to the channel.
func (e *Executor) ChanDup(id ChannelID) (ChannelID, error) {
	ch := e.channel(id)
	if ch == nil {
		return 0, ErrBadHandle
	}
	ch.desc.Refs++
	return id, nil
}

// ChanClose drops one reference. The last one marks the channel done,
// fails every blocked party with ErrClosed and tears the channel down.
func (e *Executor) ChanClose(id ChannelID) error {
	return e.ChanCloseAt(callerLocation(1), id)
}

// ChanCloseAt is ChanClose with an explicit call site for the trace.
func (e *Executor) ChanCloseAt(loc string, id ChannelID) error {
	ch := e.channel(id)
	if ch == nil {
		return ErrBadHandle
	}
	e.reg.Trace(loc, "hclose(<%d>)", id)
	ch.desc.Refs--
	if ch.desc.Refs > 0 {
		return nil
	}
	e.markDone(ch)
	e.reg.UnregisterChannel(id)
	delete(e.channels, id)
	return nil
}

// ChanDone marks the channel done. Blocked senders and receivers fail with
// ErrClosed; receivers still drain buffered messages afterwards.
func (e *Executor) ChanDone(id ChannelID) error {
	ch := e.channel(id)
	if ch == nil {
		return ErrBadHandle
	}
	e.reg.Trace(callerLocation(1), "chdone(<%d>)", id)
	if ch.desc.Done {
		return ErrClosed
	}
	e.markDone(ch)
	return nil
}

// ChanIsDone reports whether the channel is done.
func (e *Executor) ChanIsDone(id ChannelID) bool {
	ch := e.channel(id)
	if ch == nil {
		return true
	}
	return ch.desc.Done
}

// ChanLen reports how many messages are buffered.
func (e *Executor) ChanLen(id ChannelID) int {
	ch := e.channel(id)
	if ch == nil {
		return 0
	}
	return ch.bufLen()
}

func (e *Executor) channel(id ChannelID) *Channel {
	if e == nil {
		return nil
	}
	return e.channels[id]
}

func (e *Executor) markDone(ch *Channel) {
	ch.desc.Done = true
	for _, dir := range []debug.Dir{debug.DirSend, debug.DirRecv} {
		for {
			w, ok := e.reg.FirstWaiter(ch.id, dir)
			if !ok {
				break
			}
			e.complete(w, nil, ErrClosed)
		}
	}
}

// choose performs the first clause that can proceed, or blocks the task on
// all of them.
func (e *Executor) choose(t *Task, kind debug.OpKind, loc string, clauses []ChooseClause) (int, any, error) {
	if t.killed {
		return -1, nil, ErrCanceled
	}
	for _, cl := range clauses {
		if e.channel(cl.Chan) == nil {
			return -1, nil, fmt.Errorf("%w: <%d>", ErrBadHandle, cl.Chan)
		}
	}
	for i, cl := range clauses {
		ch := e.channels[cl.Chan]
		if cl.Dir == debug.DirSend {
			if ok, err := e.trySend(ch, cl.Value); ok || err != nil {
				return i, nil, err
			}
			continue
		}
		if v, ok, err := e.tryRecv(ch); ok || err != nil {
			return i, v, err
		}
	}
	if len(clauses) == 0 {
		// Nothing can ever complete an empty choose.
		e.reg.SetOp(t.ID, debug.Choose{})
		e.reg.SetCurrent(t.ID, loc)
		e.parkTask(t)
		return -1, nil, nil
	}

	decl := make([]debug.Clause, len(clauses))
	t.sendVals = make([]any, len(clauses))
	for i, cl := range clauses {
		decl[i] = debug.Clause{Dir: cl.Dir, Chan: cl.Chan}
		t.sendVals[i] = cl.Value
	}
	switch kind {
	case debug.OpSend:
		e.reg.SetOp(t.ID, debug.Send{Clauses: decl})
	case debug.OpRecv:
		e.reg.SetOp(t.ID, debug.Recv{Clauses: decl})
	default:
		e.reg.SetOp(t.ID, debug.Choose{Clauses: decl})
	}
	e.reg.SetCurrent(t.ID, loc)
	t.fired, t.value, t.err = -1, nil, nil
	e.parkTask(t)
	return t.fired, t.value, t.err
}

func (e *Executor) parkTask(t *Task) {
	(&Co{ex: e, task: t}).park()
}

func (e *Executor) trySend(ch *Channel, value any) (bool, error) {
	if ch.desc.Done {
		return false, ErrClosed
	}
	if w, ok := e.reg.FirstWaiter(ch.id, debug.DirRecv); ok {
		e.complete(w, value, nil)
		return true, nil
	}
	if ch.bufLen() < ch.desc.Capacity {
		ch.bufPush(value)
		return true, nil
	}
	return false, nil
}

func (e *Executor) tryRecv(ch *Channel) (any, bool, error) {
	if v, ok := ch.bufPop(); ok {
		e.refillBufferFromSender(ch)
		return v, true, nil
	}
	if w, ok := e.reg.FirstWaiter(ch.id, debug.DirSend); ok {
		v := e.sendValue(w)
		e.complete(w, nil, nil)
		return v, true, nil
	}
	if ch.desc.Done {
		return nil, false, ErrClosed
	}
	return nil, false, nil
}

func (e *Executor) refillBufferFromSender(ch *Channel) {
	if ch.bufLen() >= ch.desc.Capacity {
		return
	}
	w, ok := e.reg.FirstWaiter(ch.id, debug.DirSend)
	if !ok {
		return
	}
	ch.bufPush(e.sendValue(w))
	e.complete(w, nil, nil)
}

func (e *Executor) sendValue(w debug.Waiter) any {
	t := e.tasks[w.Coroutine]
	if t == nil || w.Index >= len(t.sendVals) {
		e.reg.Panic(fmt.Sprintf("send clause of coroutine {%d} has no value", w.Coroutine))
		return nil
	}
	return t.sendVals[w.Index]
}

// complete resolves a blocked clause: the owning task records the outcome,
// loses all its other clauses and becomes ready.
func (e *Executor) complete(w debug.Waiter, value any, err error) {
	t := e.tasks[w.Coroutine]
	if t == nil {
		e.reg.Panic(fmt.Sprintf("clause %d belongs to unknown coroutine {%d}", w.Clause, w.Coroutine))
		return
	}
	t.fired, t.value, t.err = w.Index, value, err
	t.sendVals = nil
	e.reg.SetOp(t.ID, debug.Ready{})
	e.wake(t.ID)
}

func (ch *Channel) bufLen() int {
	if ch == nil {
		return 0
	}
	return len(ch.buf) - ch.head
}

func (ch *Channel) bufPush(value any) {
	ch.buf = append(ch.buf, value)
	ch.desc.Items = ch.bufLen()
}

func (ch *Channel) bufPop() (any, bool) {
	if ch == nil || ch.bufLen() == 0 {
		return nil, false
	}
	val := ch.buf[ch.head]
	ch.buf[ch.head] = nil
	ch.head++
	if ch.head >= len(ch.buf) {
		ch.buf = nil
		ch.head = 0
	} else if ch.head > 128 && ch.head*2 >= len(ch.buf) {
		remaining := append([]any(nil), ch.buf[ch.head:]...)
		ch.buf = remaining
		ch.head = 0
	}
	ch.desc.Items = ch.bufLen()
	return val, true
}
