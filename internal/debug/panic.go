package debug

import (
	"io"
	"os"
)

// abortStatus is the exit status a shell reports for a process killed by
// SIGABRT.
const abortStatus = 134

// Panic reports a broken runtime invariant and terminates the process at
// once. Deferred functions do not run. It never returns.
func (r *Registry) Panic(msg string) {
	w, exit := io.Writer(os.Stderr), os.Exit
	if r != nil {
		w, exit = r.w, r.exit
	}
	_, _ = io.WriteString(w, "panic: "+msg+"\n") //nolint:errcheck
	if flusher, ok := w.(interface{ Flush() error }); ok {
		_ = flusher.Flush() //nolint:errcheck
	}
	exit(abortStatus)
	os.Exit(abortStatus)
}
