//go:build !windows

package player

// BoostPriority is a no-op off Windows; dispatch timing relies on the
// regular scheduler.
func BoostPriority() func() {
	return func() {}
}
