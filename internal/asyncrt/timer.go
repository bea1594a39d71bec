package asyncrt

import (
	"container/heap"

	"corodebug/internal/debug"
)

// TimerID identifies a scheduled timer.
type TimerID uint64

// Timer represents a single scheduled wakeup.
type Timer struct {
	id         TimerID
	deadlineMs uint64
	taskID     TaskID
	cancelled  bool
}

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadlineMs == h[j].deadlineMs {
		return h[i].id < h[j].id
	}
	return h[i].deadlineMs < h[j].deadlineMs
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	timer, ok := x.(*Timer)
	if !ok || timer == nil {
		return
	}
	*h = append(*h, timer)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	if n == 0 {
		return (*Timer)(nil)
	}
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Now returns the executor time in milliseconds.
func (e *Executor) Now() uint64 {
	if e == nil || e.clock == nil {
		return 0
	}
	return e.clock.NowMs()
}

// TimerScheduleAfter schedules a wakeup of taskID at the current executor
// time + delayMs.
func (e *Executor) TimerScheduleAfter(taskID TaskID, delayMs uint64) TimerID {
	if e == nil {
		return 0
	}
	if e.nextTimerID == 0 {
		e.nextTimerID = 1
	}
	id := e.nextTimerID
	e.nextTimerID++
	timer := &Timer{
		id:         id,
		deadlineMs: e.Now() + delayMs,
		taskID:     taskID,
	}
	e.timerByID[id] = timer
	heap.Push(&e.timers, timer)
	return id
}

// TimerCancel marks a timer as cancelled and removes it from lookup maps.
func (e *Executor) TimerCancel(id TimerID) {
	if e == nil || id == 0 {
		return
	}
	timer := e.timerByID[id]
	if timer == nil {
		return
	}
	timer.cancelled = true
	delete(e.timerByID, id)
}

// TimerActive reports whether a timer is still pending.
func (e *Executor) TimerActive(id TimerID) bool {
	if e == nil || id == 0 {
		return false
	}
	timer := e.timerByID[id]
	return timer != nil && !timer.cancelled
}

// nextDeadline drops cancelled timers off the top of the heap and reports
// the earliest live deadline.
func (e *Executor) nextDeadline() (uint64, bool) {
	for len(e.timers) > 0 {
		next := e.timers[0]
		if next == nil || next.cancelled {
			heap.Pop(&e.timers)
			continue
		}
		return next.deadlineMs, true
	}
	return 0, false
}

// fireDue fires every live timer whose deadline has passed.
func (e *Executor) fireDue() {
	now := e.Now()
	for {
		deadline, ok := e.nextDeadline()
		if !ok || deadline > now {
			return
		}
		timer, _ := heap.Pop(&e.timers).(*Timer)
		e.fireTimer(timer)
	}
}

func (e *Executor) fireTimer(timer *Timer) {
	if e == nil || timer == nil {
		return
	}
	timer.cancelled = true
	delete(e.timerByID, timer.id)
	task := e.tasks[timer.taskID]
	if task == nil || task.timer != timer.id {
		return
	}
	task.timer = 0
	e.reg.SetOp(task.ID, debug.Ready{})
	e.wake(task.ID)
}
