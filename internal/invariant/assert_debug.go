//go:build debug

package invariant

// Enabled reports whether violations panic.
const Enabled = true

func fail(msg string, args ...any) {
	warn(msg, args...)
	panic("invariant violated: " + describe(msg, args...))
}
