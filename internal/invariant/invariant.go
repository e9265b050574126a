// Package invariant checks internal invariants of the optimizers.
//
// Built with -tags debug a violation panics. Release builds log a warning and
// return false so the caller can clamp the offending value.
package invariant

import (
	"fmt"
	"log/slog"
)

// Check reports whether cond holds.
func Check(cond bool, msg string, args ...any) bool {
	if cond {
		return true
	}
	fail(msg, args...)
	return false
}

func describe(msg string, args ...any) string {
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf("%s %v", msg, args)
}

func warn(msg string, args ...any) {
	slog.Warn("invariant violated", append([]any{"check", msg}, args...)...)
}
