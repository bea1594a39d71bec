package asyncrt

import (
	"path/filepath"
	"runtime"
	"strconv"
)

// callerLocation returns "file.go:line" for the caller skip frames above
// the function that calls it.
func callerLocation(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return "???"
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

// Here returns the caller's location, for the ...At variants.
func Here() string {
	return callerLocation(1)
}
