//go:build !linux

package asyncrt

const fdPollSupported = false

func (e *Executor) netPoll(int64) bool {
	return false
}
