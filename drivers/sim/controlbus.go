package sim

import (
	"errors"
	"sync"

	"powerclock-go/drivers/regi2c"
)

var ErrBadFrame = errors.New("sim: malformed control-bus frame")

// ControlBus emulates the analog control bus behind a drivers.I2C. Each
// register is keyed by block, host id and register number.
type ControlBus struct {
	mu   sync.Mutex
	regs map[uint32]uint8
	txs  int
	cals []*calibrator

	// Fail, when set, is returned from every transaction.
	Fail error
}

type calibrator struct {
	start, done regi2c.Field
	polls       int // done reads before lock; <0 never locks
	left        int
	armed       bool
}

func NewControlBus() *ControlBus {
	return &ControlBus{regs: make(map[uint32]uint8)}
}

func key(block, host, reg uint8) uint32 {
	return uint32(block)<<16 | uint32(host)<<8 | uint32(reg)
}

// AutoCalibrate makes the done bit read back set after polls reads that
// follow a write setting the start bit. polls < 0 never completes.
func (c *ControlBus) AutoCalibrate(start, done regi2c.Field, polls int) {
	c.mu.Lock()
	c.cals = append(c.cals, &calibrator{start: start, done: done, polls: polls})
	c.mu.Unlock()
}

// Tx implements drivers.I2C. A write frame is [host, reg, val]; a read
// frame is [host, reg] with a one-byte response.
func (c *ControlBus) Tx(addr uint16, w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txs++
	if c.Fail != nil {
		return c.Fail
	}
	block := uint8(addr)
	switch {
	case len(w) == 3 && len(r) == 0:
		c.write(block, w[0], w[1], w[2])
		return nil
	case len(w) == 2 && len(r) == 1:
		r[0] = c.read(block, w[0], w[1])
		return nil
	}
	return ErrBadFrame
}

func (c *ControlBus) write(block, host, reg, val uint8) {
	c.regs[key(block, host, reg)] = val
	for _, cal := range c.cals {
		s := cal.start
		if s.Block != block || s.HostID != host || s.Reg != reg {
			continue
		}
		if val&(1<<s.Lsb) == 0 {
			continue
		}
		cal.armed = true
		cal.left = cal.polls
		d := cal.done
		k := key(d.Block, d.HostID, d.Reg)
		c.regs[k] &^= 1 << d.Lsb
	}
}

func (c *ControlBus) read(block, host, reg uint8) uint8 {
	k := key(block, host, reg)
	for _, cal := range c.cals {
		d := cal.done
		if !cal.armed || d.Block != block || d.HostID != host || d.Reg != reg {
			continue
		}
		switch {
		case cal.left < 0:
		case cal.left == 0:
			c.regs[k] |= 1 << d.Lsb
			cal.armed = false
		default:
			cal.left--
		}
	}
	return c.regs[k]
}

// Reg returns the stored value of one register.
func (c *ControlBus) Reg(block, host, reg uint8) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[key(block, host, reg)]
}

// Transactions returns the number of Tx calls so far.
func (c *ControlBus) Transactions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txs
}
