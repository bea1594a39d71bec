package trace

import "context"

// levelKey is the key type for storing the trace Level in context.
type levelKey struct{}

// LevelFrom extracts the trace level from context.
// If not found, returns LevelOff.
func LevelFrom(ctx context.Context) Level {
	if ctx == nil {
		return LevelOff
	}
	if l, ok := ctx.Value(levelKey{}).(Level); ok {
		return l
	}
	return LevelOff
}

// WithLevel attaches a trace level to context.
func WithLevel(ctx context.Context, level Level) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, levelKey{}, level)
}
