package testutil

import (
	"context"
	"testing"
	"time"

	"keystone/pkg/requestcontext"
)

// Context returns a background context that is cancelled when the test ends.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

// ContextAt returns a test context with the clock pinned to ts.
func ContextAt(t *testing.T, ts time.Time) context.Context {
	t.Helper()
	return requestcontext.WithTime(Context(t), ts)
}
