package debug

import (
	"fmt"
	"slices"
)

// OpKind identifies which blocking operation a coroutine is engaged in.
type OpKind uint8

const (
	OpReady OpKind = iota
	OpSleep
	OpFdWait
	OpSend
	OpRecv
	OpChoose
)

// String returns the string representation of OpKind.
func (k OpKind) String() string {
	switch k {
	case OpReady:
		return "ready"
	case OpSleep:
		return "msleep"
	case OpFdWait:
		return "fdwait"
	case OpSend:
		return "chs"
	case OpRecv:
		return "chr"
	case OpChoose:
		return "choose"
	default:
		return "unknown"
	}
}

// Op is the blocking state of a coroutine. The variants are Ready, Sleep,
// FdWait, Send, Recv and Choose; each carries only its own payload.
type Op interface {
	Kind() OpKind
	isOp()
}

// Ready marks a coroutine that is runnable or executing.
type Ready struct{}

// Sleep marks a coroutine waiting for a deadline.
type Sleep struct{}

// FdWait marks a coroutine waiting for I/O readiness on a file descriptor.
type FdWait struct {
	FD     int
	Events Events
}

// Send marks a coroutine blocked sending on one channel.
type Send struct {
	Clauses []Clause
}

// Recv marks a coroutine blocked receiving from one channel.
type Recv struct {
	Clauses []Clause
}

// Choose marks a coroutine blocked on several channels at once.
type Choose struct {
	Clauses []Clause
}

func (Ready) Kind() OpKind  { return OpReady }
func (Sleep) Kind() OpKind  { return OpSleep }
func (FdWait) Kind() OpKind { return OpFdWait }
func (Send) Kind() OpKind   { return OpSend }
func (Recv) Kind() OpKind   { return OpRecv }
func (Choose) Kind() OpKind { return OpChoose }

func (Ready) isOp()  {}
func (Sleep) isOp()  {}
func (FdWait) isOp() {}
func (Send) isOp()   {}
func (Recv) isOp()   {}
func (Choose) isOp() {}

// Events is the interest set of an fdwait.
type Events uint8

const (
	FdIn Events = 1 << iota
	FdOut
)

// String renders the interest set the way the dump prints it.
func (e Events) String() string {
	switch {
	case e&FdIn != 0 && e&FdOut != 0:
		return "FDW_IN | FDW_OUT"
	case e&FdIn != 0:
		return "FDW_IN"
	case e&FdOut != 0:
		return "FDW_OUT"
	default:
		return "(null)"
	}
}

// Dir is the direction of a clause.
type Dir uint8

const (
	DirSend Dir = iota
	DirRecv
)

// String returns the one-letter form used in dumps.
func (d Dir) String() string {
	if d == DirSend {
		return "S"
	}
	return "R"
}

// Clause declares one pending send or receive on a channel.
type Clause struct {
	Dir  Dir
	Chan ChannelID
}

// ClauseID is the arena handle of an attached clause.
type ClauseID int

// clause is an attached Clause: it sits on its channel's sender or receiver
// list and is reachable from its coroutine's clause slice.
type clause struct {
	id    ClauseID
	cr    CoroutineID
	ch    ChannelID
	dir   Dir
	index int
	link  links[ClauseID]
}

// Waiter describes a clause queued on a channel.
type Waiter struct {
	Clause    ClauseID
	Coroutine CoroutineID
	// Index is the clause's position in the coroutine's operation.
	Index int
}

func clausesOf(op Op) []Clause {
	switch op := op.(type) {
	case Send:
		return op.Clauses
	case Recv:
		return op.Clauses
	case Choose:
		return op.Clauses
	default:
		return nil
	}
}

// ownOp copies clause slices so later caller mutations don't leak into the
// recorded state.
func ownOp(op Op) Op {
	switch op := op.(type) {
	case nil:
		return Ready{}
	case Send:
		return Send{Clauses: slices.Clone(op.Clauses)}
	case Recv:
		return Recv{Clauses: slices.Clone(op.Clauses)}
	case Choose:
		return Choose{Clauses: slices.Clone(op.Clauses)}
	default:
		return op
	}
}

// SetOp replaces the blocking state of a coroutine. Clauses of the previous
// operation are taken off their channels first; clauses of the new one are
// appended to the back of their channel's sender or receiver list in
// declaration order.
func (r *Registry) SetOp(id CoroutineID, op Op) {
	if r == nil {
		return
	}
	cr := r.crs[id]
	if cr == nil {
		return
	}
	r.detachClauses(cr)
	op = ownOp(op)
	for _, c := range clausesOf(op) {
		if r.chans[c.Chan] == nil {
			r.Panic(fmt.Sprintf("coroutine {%d} waits on unknown channel <%d>", id, c.Chan))
			return
		}
	}
	cr.op = op
	for i, c := range clausesOf(op) {
		ch := r.chans[c.Chan]
		cl := &clause{
			id:    r.nextClauseID,
			cr:    id,
			ch:    c.Chan,
			dir:   c.Dir,
			index: i,
			link:  unlinked[ClauseID](),
		}
		r.nextClauseID++
		r.clauses[cl.id] = cl
		ch.waitlist(c.Dir).pushBack(cl.id, r.clauseLinks)
		cr.clauses = append(cr.clauses, cl.id)
	}
}

// Op returns the blocking state of a coroutine.
func (r *Registry) Op(id CoroutineID) Op {
	if r == nil {
		return Ready{}
	}
	cr := r.crs[id]
	if cr == nil {
		return Ready{}
	}
	return cr.op
}

// Waiters returns the clauses queued on one side of a channel, oldest first.
func (r *Registry) Waiters(ch ChannelID, dir Dir) []Waiter {
	if r == nil {
		return nil
	}
	c := r.chans[ch]
	if c == nil {
		return nil
	}
	list := c.waitlist(dir)
	out := make([]Waiter, 0, list.len())
	for id := range list.all(r.clauseLinks) {
		out = append(out, r.waiter(id))
	}
	return out
}

// FirstWaiter returns the oldest clause queued on one side of a channel.
func (r *Registry) FirstWaiter(ch ChannelID, dir Dir) (Waiter, bool) {
	if r == nil {
		return Waiter{}, false
	}
	c := r.chans[ch]
	if c == nil {
		return Waiter{}, false
	}
	id, ok := c.waitlist(dir).front()
	if !ok {
		return Waiter{}, false
	}
	return r.waiter(id), true
}

// WaitCount reports how many clauses are queued on one side of a channel.
func (r *Registry) WaitCount(ch ChannelID, dir Dir) int {
	if r == nil {
		return 0
	}
	c := r.chans[ch]
	if c == nil {
		return 0
	}
	return c.waitlist(dir).len()
}

func (r *Registry) waiter(id ClauseID) Waiter {
	cl := r.clauses[id]
	return Waiter{Clause: id, Coroutine: cl.cr, Index: cl.index}
}

func (r *Registry) detachClauses(cr *coroutine) {
	for _, id := range cr.clauses {
		cl := r.clauses[id]
		if cl == nil {
			continue
		}
		if ch := r.chans[cl.ch]; ch != nil {
			ch.waitlist(cl.dir).remove(id, r.clauseLinks)
		}
		delete(r.clauses, id)
	}
	cr.clauses = nil
	cr.op = Ready{}
}

func (r *Registry) clauseLinks(id ClauseID) *links[ClauseID] {
	return &r.clauses[id].link
}
