//go:build tinygo

package core

import "runtime/interrupt"

// critical runs fn with every interrupt masked. Nesting is safe: the
// previous mask is restored, not cleared.
func critical(fn func()) {
	mask := interrupt.Disable()
	fn()
	interrupt.Restore(mask)
}
