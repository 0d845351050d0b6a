// Package critsec provides the single critical section that serialises
// clock-tree and sleep-sequencer state changes.
//
// Hold it for a short read-modify-write of shared state or one hardware
// transaction. It is not re-entrant.
package critsec

// Section is a non-nested mutual-exclusion region.
type Section struct {
	lock
}

// New returns an unlocked Section.
func New() *Section { return &Section{} }
