// Package sim provides in-memory stand-ins for the register file and the
// analog control bus. The host tool and the package tests drive the clock
// and power code against these instead of silicon.
package sim

import "sync"

// Op is one recorded register write.
type Op struct {
	Addr uint32
	Val  uint32
}

// Registers is a sparse 32-bit register file implementing regbus.Bus.
// Writes are traced in order; hooks let a test script hardware reactions.
type Registers struct {
	mu      sync.Mutex
	mem     map[uint32]uint32
	trace   []Op
	reads   map[uint32]int
	onRead  map[uint32]func(cur uint32) uint32
	onWrite map[uint32]func(val uint32)
}

func NewRegisters() *Registers {
	return &Registers{
		mem:     make(map[uint32]uint32),
		reads:   make(map[uint32]int),
		onRead:  make(map[uint32]func(uint32) uint32),
		onWrite: make(map[uint32]func(uint32)),
	}
}

func (r *Registers) Read(addr uint32) uint32 {
	r.mu.Lock()
	r.reads[addr]++
	v := r.mem[addr]
	fn := r.onRead[addr]
	r.mu.Unlock()
	if fn != nil {
		v = fn(v)
		r.Set(addr, v)
	}
	return v
}

func (r *Registers) Write(addr, val uint32) {
	r.mu.Lock()
	r.mem[addr] = val
	r.trace = append(r.trace, Op{Addr: addr, Val: val})
	fn := r.onWrite[addr]
	r.mu.Unlock()
	if fn != nil {
		fn(val)
	}
}

// Set stores a value without tracing it (hardware-side update).
func (r *Registers) Set(addr, val uint32) {
	r.mu.Lock()
	r.mem[addr] = val
	r.mu.Unlock()
}

// Peek returns a value without counting a read.
func (r *Registers) Peek(addr uint32) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mem[addr]
}

// OnRead installs fn to produce the value seen by each Read of addr.
func (r *Registers) OnRead(addr uint32, fn func(cur uint32) uint32) {
	r.mu.Lock()
	r.onRead[addr] = fn
	r.mu.Unlock()
}

// OnWrite installs fn to run after each Write to addr.
func (r *Registers) OnWrite(addr uint32, fn func(val uint32)) {
	r.mu.Lock()
	r.onWrite[addr] = fn
	r.mu.Unlock()
}

// Trace returns a copy of the writes so far.
func (r *Registers) Trace() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.trace))
	copy(out, r.trace)
	return out
}

// Writes returns the values written to addr, in order.
func (r *Registers) Writes(addr uint32) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uint32
	for _, op := range r.trace {
		if op.Addr == addr {
			out = append(out, op.Val)
		}
	}
	return out
}

// Reads returns how often addr was read.
func (r *Registers) Reads(addr uint32) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads[addr]
}

// ResetTrace forgets recorded writes and read counts, keeping contents.
func (r *Registers) ResetTrace() {
	r.mu.Lock()
	r.trace = nil
	r.reads = make(map[uint32]int)
	r.mu.Unlock()
}

// Snapshot returns a copy of the register contents.
func (r *Registers) Snapshot() map[uint32]uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uint32]uint32, len(r.mem))
	for a, v := range r.mem {
		out[a] = v
	}
	return out
}
