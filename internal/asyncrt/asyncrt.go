package asyncrt

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"fortio.org/safecast"

	"corodebug/internal/debug"
)

// Executor runs coroutines on a single logical thread with a deterministic
// FIFO scheduler by default. Fuzz scheduling is supported for reproducible
// interleavings.
//
// Every coroutine runs on its own goroutine, but control is handed over
// explicitly: at any moment either the scheduler or exactly one coroutine is
// executing. All state changes are reported to the debug registry.
type Executor struct {
	cfg   Config
	reg   *debug.Registry
	clock Clock

	ready    []TaskID
	readySet map[TaskID]struct{}
	tasks    map[TaskID]*Task
	current  TaskID
	yield    chan struct{}
	rng      *rand.Rand

	channels map[ChannelID]*Channel

	nowMs       uint64
	timers      timerHeap
	timerByID   map[TimerID]*Timer
	nextTimerID TimerID

	fdWaits map[TaskID]*fdWait

	fault string
}

// TaskID identifies a spawned coroutine. It is the coroutine's id in the
// debug registry.
type TaskID = debug.CoroutineID

// TaskStatus describes task scheduling state.
type TaskStatus uint8

const (
	TaskReady TaskStatus = iota
	TaskRunning
	TaskWaiting
	TaskDone
)

// Task stores executor-visible coroutine state.
type Task struct {
	ID     TaskID
	Status TaskStatus

	fn     func(*Co)
	resume chan struct{}
	killed bool

	// Outcome of the last blocking operation, filled in by whoever woke
	// the task.
	sendVals []any
	fired    int
	value    any
	err      error
	revents  debug.Events
	timer    TimerID
}

// Config configures executor scheduling behavior.
type Config struct {
	Fuzz bool
	Seed uint64
	// TimerMode selects virtual (default) or wall-clock timers.
	TimerMode TimerMode
	// Registry receives every state change; nil selects debug.Default().
	Registry *debug.Registry
	// DumpOnDeadlock writes the registry dump before Run reports a deadlock.
	DumpOnDeadlock bool
}

// NewExecutor constructs an executor with the provided configuration.
func NewExecutor(cfg Config) *Executor {
	debug.PreserveDebug()
	exec := &Executor{
		cfg:       cfg,
		reg:       cfg.Registry,
		readySet:  make(map[TaskID]struct{}),
		tasks:     make(map[TaskID]*Task),
		yield:     make(chan struct{}),
		channels:  make(map[ChannelID]*Channel),
		timerByID: make(map[TimerID]*Timer),
		fdWaits:   make(map[TaskID]*fdWait),
	}
	if exec.reg == nil {
		exec.reg = debug.Default()
	}
	if cfg.Fuzz {
		seed := cfg.Seed
		if seed == 0 {
			seed = 1
		}
		exec.rng = rand.New(rand.NewSource(int64(seed))) //nolint:gosec // deterministic scheduler seed
	}
	switch cfg.TimerMode {
	case TimerModeReal:
		start := time.Now()
		exec.clock = &RealClock{NowFunc: func() uint64 {
			ms, err := safecast.Conv[uint64](time.Since(start).Milliseconds())
			if err != nil {
				return 0
			}
			return ms
		}}
	default:
		exec.clock = &VirtualClock{ex: exec}
	}
	return exec
}

// Registry returns the debug registry the executor reports to.
func (e *Executor) Registry() *debug.Registry {
	if e == nil {
		return nil
	}
	return e.reg
}

// Current returns the ID of the coroutine being executed, or the main
// coroutine while the scheduler itself runs.
func (e *Executor) Current() TaskID {
	if e == nil {
		return debug.MainCoroutine
	}
	return e.current
}

// Task returns a task by ID.
func (e *Executor) Task(id TaskID) *Task {
	if e == nil {
		return nil
	}
	return e.tasks[id]
}

// Go launches a coroutine running fn. The caller's source location becomes
// the coroutine's creation site.
func (e *Executor) Go(fn func(co *Co)) TaskID {
	return e.GoAt(callerLocation(1), fn)
}

// GoAt launches a coroutine with an explicit creation site.
func (e *Executor) GoAt(created string, fn func(co *Co)) TaskID {
	if e == nil || fn == nil {
		return 0
	}
	id := e.reg.RegisterCoroutine(created)
	task := &Task{
		ID:     id,
		Status: TaskReady,
		fn:     fn,
		resume: make(chan struct{}),
		fired:  -1,
	}
	e.tasks[id] = task
	e.reg.Trace(created, "go() -> {%d}", id)
	go e.body(task)
	e.enqueue(id)
	return id
}

func (e *Executor) body(t *Task) {
	<-t.resume
	defer e.finish(t)
	if !t.killed {
		t.fn(&Co{ex: e, task: t})
	}
}

// finish runs on the coroutine's goroutine after its function returned,
// panicked or was killed, and hands control back to the scheduler.
func (e *Executor) finish(t *Task) {
	if r := recover(); r != nil {
		e.fault = fmt.Sprintf("coroutine {%d} panicked: %v", t.ID, r)
	}
	t.Status = TaskDone
	e.cancelWait(t)
	e.reg.UnregisterCoroutine(t.ID)
	delete(e.tasks, t.ID)
	e.yield <- struct{}{}
}

// Run executes coroutines until all of them finished. It returns ErrDeadlock
// when the remaining coroutines are all blocked with no timer or descriptor
// able to wake them, and ErrCanceled when ctx ends first. Blocked coroutines
// are left in place; Close disposes of them.
func (e *Executor) Run(ctx context.Context) error {
	if e == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrCanceled, err)
		}
		if id, ok := e.NextReady(); ok {
			e.switchTo(e.tasks[id])
			if e.fault != "" {
				e.reg.Panic(e.fault)
				return nil
			}
			continue
		}
		if len(e.tasks) == 0 {
			return nil
		}
		if e.advance() {
			continue
		}
		if e.cfg.DumpOnDeadlock {
			e.reg.Dump()
		}
		return ErrDeadlock
	}
}

// Close kills every coroutine that has not finished. Killed coroutines
// unwind through runtime.Goexit, so their deferred calls run.
func (e *Executor) Close() {
	if e == nil {
		return
	}
	ids := make([]TaskID, 0, len(e.tasks))
	for id := range e.tasks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		t := e.tasks[id]
		if t == nil {
			continue
		}
		t.killed = true
		e.cancelWait(t)
		e.switchTo(t)
	}
	e.ready = nil
	clear(e.readySet)
}

func (e *Executor) switchTo(t *Task) {
	if t == nil {
		return
	}
	e.current = t.ID
	e.reg.SetRunning(t.ID)
	t.Status = TaskRunning
	t.resume <- struct{}{}
	<-e.yield
	e.current = debug.MainCoroutine
	e.reg.SetRunning(debug.MainCoroutine)
}

// NextReady returns the next ready task according to scheduler policy.
func (e *Executor) NextReady() (TaskID, bool) {
	if e == nil || len(e.ready) == 0 {
		return 0, false
	}
	for len(e.ready) > 0 {
		idx := 0
		if e.cfg.Fuzz {
			idx = e.rng.Intn(len(e.ready))
		}
		id := e.ready[idx]
		copy(e.ready[idx:], e.ready[idx+1:])
		e.ready = e.ready[:len(e.ready)-1]
		delete(e.readySet, id)
		task := e.tasks[id]
		if task == nil || task.Status == TaskDone {
			continue
		}
		return id, true
	}
	return 0, false
}

// wake makes a blocked task runnable again. Its operation must already be
// reset to Ready in the registry.
func (e *Executor) wake(id TaskID) {
	task := e.tasks[id]
	if task == nil || task.Status == TaskDone {
		return
	}
	e.enqueue(id)
}

func (e *Executor) enqueue(id TaskID) {
	if _, ok := e.readySet[id]; ok {
		return
	}
	e.ready = append(e.ready, id)
	e.readySet[id] = struct{}{}
	if task := e.tasks[id]; task != nil && task.Status != TaskDone {
		task.Status = TaskReady
	}
}

// cancelWait drops whatever a task is blocked on without waking it.
func (e *Executor) cancelWait(t *Task) {
	if t.timer != 0 {
		e.TimerCancel(t.timer)
		t.timer = 0
	}
	delete(e.fdWaits, t.ID)
	t.sendVals = nil
	e.reg.SetOp(t.ID, debug.Ready{})
}

// advance waits for the next external event: a due timer or a ready file
// descriptor. It reports false when nothing could ever wake a task.
func (e *Executor) advance() bool {
	if len(e.fdWaits) > 0 {
		timeout := int64(maxPollMs)
		if deadline, ok := e.nextDeadline(); ok {
			timeout = 0
			if e.cfg.TimerMode == TimerModeReal {
				timeout = min(e.msUntil(deadline), maxPollMs)
			}
		}
		if e.netPoll(timeout) {
			return true
		}
		if _, ok := e.nextDeadline(); !ok {
			// Only descriptors left; keep polling.
			return true
		}
	}
	deadline, ok := e.nextDeadline()
	if !ok {
		return false
	}
	e.clock.SleepUntilMs(deadline)
	e.fireDue()
	return true
}

func (e *Executor) msUntil(deadlineMs uint64) int64 {
	now := e.clock.NowMs()
	if deadlineMs <= now {
		return 0
	}
	d, err := safecast.Conv[int64](deadlineMs - now)
	if err != nil {
		return maxPollMs
	}
	return d
}
