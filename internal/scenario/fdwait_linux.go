//go:build linux

package scenario

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"corodebug/internal/asyncrt"
	"corodebug/internal/debug"
)

func platformScenarios() []Scenario {
	return []Scenario{{
		Name:        "fdwait",
		Description: "a reader waits on a pipe until a sleeping writer fills it",
		Run:         runFdWait,
	}}
}

func runFdWait(ctx context.Context, ex *asyncrt.Executor) error {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return fmt.Errorf("pipe: %w", err)
	}
	defer func() {
		release(ex, "")
		_ = unix.Close(p[0]) //nolint:errcheck
		_ = unix.Close(p[1]) //nolint:errcheck
	}()

	const message = "hello through a pipe"
	var got string
	var readErr error
	ex.Go(func(co *asyncrt.Co) {
		buf := make([]byte, 64)
		for len(got) < len(message) {
			if _, readErr = co.FdWait(p[0], debug.FdIn); readErr != nil {
				return
			}
			n, err := unix.Read(p[0], buf)
			if err != nil {
				readErr = err
				return
			}
			got += string(buf[:n])
		}
	})
	ex.Go(func(co *asyncrt.Co) {
		for i := 0; i < len(message); i += 8 {
			co.Sleep(5 * time.Millisecond)
			if _, err := co.FdWait(p[1], debug.FdOut); err != nil {
				return
			}
			end := min(i+8, len(message))
			_, _ = unix.Write(p[1], []byte(message[i:end])) //nolint:errcheck
		}
	})

	if err := ex.Run(ctx); err != nil {
		return err
	}
	if readErr != nil {
		return fmt.Errorf("reader: %w", readErr)
	}
	if got != message {
		return fmt.Errorf("reader got %q, want %q", got, message)
	}
	return nil
}
