//go:build !tinygo

package critsec

import "sync"

// Hosted builds have no interrupts to mask; a mutex serialises goroutines
// standing in for cores.
type lock struct {
	mu sync.Mutex
}

func (l *lock) Lock()   { l.mu.Lock() }
func (l *lock) Unlock() { l.mu.Unlock() }
