//go:build !debug

package invariant

// Enabled reports whether violations panic.
const Enabled = false

func fail(msg string, args ...any) {
	warn(msg, args...)
}
