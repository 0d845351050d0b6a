package sim

import (
	"powerclock-go/chip"
	"powerclock-go/drivers/regbus"
)

// Outcome scripts how the power unit answers a sleep request.
type Outcome uint8

const (
	Wake Outcome = iota
	Reject
	Hang // no status bit ever appears
)

// Board wires a register file and a control bus to one chip's tables so
// that PLLs lock and sleep requests complete.
type Board struct {
	Chip *chip.Chip
	Regs *Registers
	Ctl  *ControlBus

	outcome Outcome
}

// CalPolls is how many done reads a simulated PLL needs before it locks.
const CalPolls = 3

func NewBoard(c *chip.Chip) *Board {
	b := &Board{Chip: c, Regs: NewRegisters(), Ctl: NewControlBus()}
	for _, p := range c.Clock.Plls {
		b.Ctl.AutoCalibrate(p.CalStart, p.CalDone, CalPolls)
	}
	pr := &c.Sleep.Regs
	if pr.FlashIdle.Present() {
		b.Regs.Set(pr.FlashIdle.Addr, pr.FlashIdle.Mask())
	}
	b.Regs.OnWrite(pr.SleepStart.Addr, func(v uint32) {
		if v&pr.SleepStart.Mask() == 0 {
			return
		}
		switch b.outcome {
		case Wake:
			b.setField(pr.WakeupStatus, 1)
		case Reject:
			b.setField(pr.RejectStatus, 1)
		}
	})
	b.Regs.OnWrite(pr.IntClear.Addr, func(v uint32) {
		if v&pr.IntClear.Mask() == 0 {
			return
		}
		b.setField(pr.WakeupStatus, 0)
		b.setField(pr.RejectStatus, 0)
	})
	return b
}

// SleepOutcome selects the answer to the next sleep requests.
func (b *Board) SleepOutcome(o Outcome) { b.outcome = o }

// StuckPll makes every later calibration of the board's PLLs time out.
func (b *Board) StuckPll() {
	b.Ctl.mu.Lock()
	for _, c := range b.Ctl.cals {
		c.polls = -1
	}
	b.Ctl.mu.Unlock()
}

// Field reads a field without counting it as a bus read.
func (b *Board) Field(f regbus.Field) uint32 {
	if !f.Present() {
		return 0
	}
	return (b.Regs.Peek(f.Addr) & f.Mask()) >> f.Shift
}

func (b *Board) setField(f regbus.Field, v uint32) {
	if !f.Present() {
		return
	}
	cur := b.Regs.Peek(f.Addr)
	b.Regs.Set(f.Addr, (cur&^f.Mask())|((v<<f.Shift)&f.Mask()))
}
