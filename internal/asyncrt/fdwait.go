package asyncrt

import "corodebug/internal/debug"

// maxPollMs bounds a single poll so Run can notice context cancellation.
const maxPollMs = 100

type fdWait struct {
	fd     int
	events debug.Events
}

// completeFdWait wakes a task whose descriptor became ready.
func (e *Executor) completeFdWait(id TaskID, revents debug.Events) {
	task := e.tasks[id]
	if task == nil {
		return
	}
	delete(e.fdWaits, id)
	task.revents = revents
	e.reg.SetOp(id, debug.Ready{})
	e.wake(id)
}
