package debug

import (
	"fmt"
	"io"
	"os"

	"corodebug/internal/trace"
)

// CoroutineID identifies a coroutine for its whole lifetime.
type CoroutineID int

// ChannelID identifies a channel for its whole lifetime.
type ChannelID int

// MainCoroutine is the implicit top-level coroutine. It is present from the
// start, has no creation site and is never unregistered.
const MainCoroutine CoroutineID = 0

type coroutine struct {
	id      CoroutineID
	created string
	label   string
	op      Op
	clauses []ClauseID
	link    links[CoroutineID]
}

// Channel is the descriptor of a live channel. The exported fields belong to
// the channel implementation, which keeps them current; the registry only
// reads them.
type Channel struct {
	// Items is the number of queued messages.
	Items int
	// Capacity is the buffer size; 0 means rendezvous.
	Capacity int
	// Refs is the number of handles to the channel.
	Refs int
	// Done is set once the channel no longer accepts sends.
	Done bool

	id        ChannelID
	created   string
	senders   idList[ClauseID]
	receivers idList[ClauseID]
	link      links[ChannelID]
}

// ID returns the channel id.
func (c *Channel) ID() ChannelID {
	if c == nil {
		return 0
	}
	return c.id
}

// Created returns where the channel was created.
func (c *Channel) Created() string {
	if c == nil {
		return ""
	}
	return c.created
}

func (c *Channel) waitlist(dir Dir) *idList[ClauseID] {
	if dir == DirSend {
		return &c.senders
	}
	return &c.receivers
}

// Config configures a Registry.
type Config struct {
	// Output is the diagnostic stream; nil selects os.Stderr.
	Output io.Writer
	// Exit terminates the process after a fatal error; nil selects os.Exit.
	Exit func(code int)
	// TraceLevel is the initial tracing level.
	TraceLevel trace.Level
}

// Registry tracks live coroutines and channels of one runtime.
type Registry struct {
	w      io.Writer
	exit   func(int)
	tracer *trace.StreamTracer

	nextCrID     CoroutineID
	nextChanID   ChannelID
	nextClauseID ClauseID

	crs      map[CoroutineID]*coroutine
	crList   idList[CoroutineID]
	chans    map[ChannelID]*Channel
	chanList idList[ChannelID]
	clauses  map[ClauseID]*clause
	running  CoroutineID
}

// New constructs a registry holding only the main coroutine.
func New(cfg Config) *Registry {
	r := &Registry{
		w:          cfg.Output,
		exit:       cfg.Exit,
		nextCrID:   1,
		nextChanID: 1,
		crs:        make(map[CoroutineID]*coroutine),
		crList:     newIDList[CoroutineID](),
		chans:      make(map[ChannelID]*Channel),
		chanList:   newIDList[ChannelID](),
		clauses:    make(map[ClauseID]*clause),
		running:    MainCoroutine,
	}
	if r.w == nil {
		r.w = os.Stderr
	}
	if r.exit == nil {
		r.exit = os.Exit
	}
	r.tracer = trace.NewStreamTracer(r.w, cfg.TraceLevel, func() int { return int(r.running) })
	r.addCoroutine(MainCoroutine, "")
	return r
}

func (r *Registry) addCoroutine(id CoroutineID, created string) {
	cr := &coroutine{
		id:      id,
		created: created,
		op:      Ready{},
		link:    unlinked[CoroutineID](),
	}
	r.crs[id] = cr
	r.crList.pushBack(id, r.crLinks)
}

// RegisterCoroutine assigns the next coroutine id and appends the coroutine
// to the live list.
func (r *Registry) RegisterCoroutine(created string) CoroutineID {
	if r == nil {
		return 0
	}
	id := r.nextCrID
	r.nextCrID++
	r.addCoroutine(id, created)
	return id
}

// UnregisterCoroutine removes a coroutine from the live list. Its clauses
// are taken off their channels. Ids are never reused.
func (r *Registry) UnregisterCoroutine(id CoroutineID) {
	if r == nil || id == MainCoroutine {
		return
	}
	cr := r.crs[id]
	if cr == nil {
		return
	}
	r.detachClauses(cr)
	r.crList.remove(id, r.crLinks)
	delete(r.crs, id)
	if r.running == id {
		r.running = MainCoroutine
	}
}

// RegisterChannel assigns the next channel id and appends the channel to the
// live list. The returned descriptor starts with one reference.
func (r *Registry) RegisterChannel(created string) ChannelID {
	if r == nil {
		return 0
	}
	id := r.nextChanID
	r.nextChanID++
	r.chans[id] = &Channel{
		Refs:      1,
		id:        id,
		created:   created,
		senders:   newIDList[ClauseID](),
		receivers: newIDList[ClauseID](),
		link:      unlinked[ChannelID](),
	}
	r.chanList.pushBack(id, r.chanLinks)
	return id
}

// UnregisterChannel removes a channel from the live list. Tearing down a
// channel that still has queued clauses is fatal.
func (r *Registry) UnregisterChannel(id ChannelID) {
	if r == nil {
		return
	}
	ch := r.chans[id]
	if ch == nil {
		return
	}
	if !ch.senders.empty() || !ch.receivers.empty() {
		r.Panic(fmt.Sprintf("channel <%d> torn down with waiting clauses", id))
		return
	}
	r.chanList.remove(id, r.chanLinks)
	delete(r.chans, id)
}

// Channel returns the descriptor of a live channel, or nil.
func (r *Registry) Channel(id ChannelID) *Channel {
	if r == nil {
		return nil
	}
	return r.chans[id]
}

// SetCurrent records what a coroutine is doing, typically the source
// location of its last blocking call.
func (r *Registry) SetCurrent(id CoroutineID, label string) {
	if r == nil {
		return
	}
	if cr := r.crs[id]; cr != nil {
		cr.label = label
	}
}

// Label returns the last label recorded for a coroutine.
func (r *Registry) Label(id CoroutineID) string {
	if r == nil {
		return ""
	}
	if cr := r.crs[id]; cr != nil {
		return cr.label
	}
	return ""
}

// Created returns where a coroutine was launched; empty for main.
func (r *Registry) Created(id CoroutineID) string {
	if r == nil {
		return ""
	}
	if cr := r.crs[id]; cr != nil {
		return cr.created
	}
	return ""
}

// SetRunning records which coroutine is executing.
func (r *Registry) SetRunning(id CoroutineID) {
	if r == nil {
		return
	}
	r.running = id
}

// Running returns the coroutine that is executing.
func (r *Registry) Running() CoroutineID {
	if r == nil {
		return MainCoroutine
	}
	return r.running
}

// Coroutines returns live coroutine ids in launch order, main first.
func (r *Registry) Coroutines() []CoroutineID {
	if r == nil {
		return nil
	}
	out := make([]CoroutineID, 0, r.crList.len())
	for id := range r.crList.all(r.crLinks) {
		out = append(out, id)
	}
	return out
}

// Channels returns live channel ids in creation order.
func (r *Registry) Channels() []ChannelID {
	if r == nil {
		return nil
	}
	out := make([]ChannelID, 0, r.chanList.len())
	for id := range r.chanList.all(r.chanLinks) {
		out = append(out, id)
	}
	return out
}

func (r *Registry) crLinks(id CoroutineID) *links[CoroutineID] {
	return &r.crs[id].link
}

func (r *Registry) chanLinks(id ChannelID) *links[ChannelID] {
	return &r.chans[id].link
}

// SetTraceLevel changes the tracing level; values <= 0 disable tracing.
func (r *Registry) SetTraceLevel(level trace.Level) {
	if r == nil {
		return
	}
	r.tracer.SetLevel(level)
}

// Tracer returns the registry's tracer.
func (r *Registry) Tracer() trace.Tracer {
	if r == nil {
		return trace.Nop
	}
	return r.tracer
}

// Trace writes one trace line attributed to the running coroutine.
func (r *Registry) Trace(location, format string, args ...any) {
	if r == nil {
		return
	}
	r.tracer.Trace(location, format, args...)
}
