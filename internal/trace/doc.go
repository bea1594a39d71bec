// Package trace provides the execution tracer of the coroutine runtime.
//
// The tracer narrates individual runtime operations (coroutine launch,
// msleep, channel sends and receives, choose) as one timestamped line per
// call on the diagnostic stream. It is meant for a developer looking at a
// stuck program, not for machines: there is no structured output.
//
// # Levels
//
// Verbosity is a single integer:
//
//   - LevelOff (0 or any negative value): tracing disabled
//   - any positive value: every trace call emits a line
//
// There are no intermediate tiers.
//
// # Line format
//
//	==> 15:04:05.123456 {3}      chs(<1>) at main.go:42
//
// The timestamp is local wall-clock time with microsecond precision, the
// braces hold the id of the coroutine that is executing, and the location
// suffix is present only when the caller supplied one.
//
// # Context Propagation
//
// The configured level travels from the CLI to the runtime via context:
//
//	ctx = trace.WithLevel(ctx, level)
//	level := trace.LevelFrom(ctx)
package trace
