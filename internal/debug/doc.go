// Package debug is the introspection layer of the coroutine runtime.
//
// It keeps a registry of every live coroutine and channel, records what each
// coroutine is blocked on, renders the whole runtime state as a fixed-format
// text table (Dump) and narrates execution through a tracer. The scheduler
// and channel implementation feed it; this package never drives them.
//
// All state is owned by a Registry. The runtime is single-threaded and
// cooperative, so a Registry takes no locks: callers must not use one
// Registry from two goroutines at the same time.
//
// The process-wide instance returned by Default writes to os.Stderr. Goredump
// and Gotrace act on it and are kept linked into every binary so a debugger
// can call them on a stuck process.
package debug
