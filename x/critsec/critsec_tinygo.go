//go:build tinygo

package critsec

import (
	"runtime/interrupt"
	"sync/atomic"
)

// On the MCU the section masks interrupts on the calling core and spins on
// a flag shared with the other core.
type lock struct {
	held  atomic.Uint32
	state interrupt.State
}

func (l *lock) Lock() {
	st := interrupt.Disable()
	for !l.held.CompareAndSwap(0, 1) {
	}
	l.state = st
}

func (l *lock) Unlock() {
	st := l.state
	l.held.Store(0)
	interrupt.Restore(st)
}
