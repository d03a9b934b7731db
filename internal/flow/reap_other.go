//go:build !linux

package flow

// awaitExit has no non-reaping wait here; the exit is marked after Wait.
func awaitExit(int) bool {
	return false
}
