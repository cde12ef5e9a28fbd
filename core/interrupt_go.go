//go:build !tinygo

package core

import "sync"

// hostMask serialises the sections the MCU guards by masking interrupts,
// so that tests delivering interrupts from goroutines stay race free.
// Unlike the MCU mask it does not nest.
var hostMask sync.Mutex

func critical(fn func()) {
	hostMask.Lock()
	defer hostMask.Unlock()
	fn()
}
