//go:build linux

package asyncrt

import (
	"slices"

	"fortio.org/safecast"
	"golang.org/x/sys/unix"

	"corodebug/internal/debug"
)

const fdPollSupported = true

type netPollEntry struct {
	fd     int32
	events int16
	tasks  []TaskID
}

// netPoll waits up to timeoutMs for any descriptor a task waits on and wakes
// the tasks whose interest fired. It reports whether any task woke.
func (e *Executor) netPoll(timeoutMs int64) bool {
	if e == nil || len(e.fdWaits) == 0 {
		return false
	}
	ids := make([]TaskID, 0, len(e.fdWaits))
	for id := range e.fdWaits {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	entries := make(map[int32]*netPollEntry)
	order := make([]*netPollEntry, 0, len(ids))
	for _, id := range ids {
		w := e.fdWaits[id]
		fd, err := safecast.Conv[int32](w.fd)
		if err != nil || fd < 0 {
			e.completeFdWait(id, 0)
			continue
		}
		entry := entries[fd]
		if entry == nil {
			entry = &netPollEntry{fd: fd}
			entries[fd] = entry
			order = append(order, entry)
		}
		entry.events |= pollEvents(w.events)
		entry.tasks = append(entry.tasks, id)
	}
	if len(order) == 0 {
		return true
	}

	pfds := make([]unix.PollFd, 0, len(order))
	for _, entry := range order {
		pfds = append(pfds, unix.PollFd{Fd: entry.fd, Events: entry.events})
	}

	timeout := maxPollMs
	switch {
	case timeoutMs < 0:
		timeout = maxPollMs
	case timeoutMs < maxPollMs:
		timeout = int(timeoutMs)
	}

	for {
		n, err := unix.Poll(pfds, timeout)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			// Let every waiter observe the failure on its own descriptor.
			for _, entry := range order {
				for _, id := range entry.tasks {
					e.completeFdWait(id, e.fdWaits[id].events)
				}
			}
			return true
		}
		if n == 0 {
			return false
		}
		break
	}

	woke := false
	for i, pfd := range pfds {
		if pfd.Revents == 0 {
			continue
		}
		failed := pfd.Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0
		for _, id := range order[i].tasks {
			w := e.fdWaits[id]
			var fired debug.Events
			if w.events&debug.FdIn != 0 && (pfd.Revents&unix.POLLIN != 0 || failed) {
				fired |= debug.FdIn
			}
			if w.events&debug.FdOut != 0 && (pfd.Revents&unix.POLLOUT != 0 || failed) {
				fired |= debug.FdOut
			}
			if fired == 0 {
				continue
			}
			e.completeFdWait(id, fired)
			woke = true
		}
	}
	return woke
}

func pollEvents(events debug.Events) int16 {
	var out int16
	if events&debug.FdIn != 0 {
		out |= unix.POLLIN
	}
	if events&debug.FdOut != 0 {
		out |= unix.POLLOUT
	}
	return out
}
