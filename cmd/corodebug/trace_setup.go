package main

import (
	"context"

	"github.com/spf13/cobra"

	"corodebug/internal/trace"
)

// setupTracing stores the trace level in the command context, where the
// scenario runner picks it up for every registry it creates.
func setupTracing(cmd *cobra.Command, level trace.Level) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = trace.WithLevel(ctx, level)
	cmd.SetContext(ctx)
	return ctx
}
