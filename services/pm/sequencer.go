// Package pm sequences sleep and wake: it builds the per-attempt power
// mode parameters, programs the power unit and runs the sleep handshake.
//
// Every call that touches hardware takes a *clk.Txn. The sequencer shares
// the clock tree's critical section and relies on the caller holding it.
package pm

import (
	"powerclock-go/drivers/regbus"
	"powerclock-go/errcode"
	"powerclock-go/services/clk"
	"powerclock-go/types"
	"powerclock-go/x/mathx"
)

// State tracks one sleep attempt.
type State uint8

const (
	Idle State = iota
	ParamsBuilt
	Armed
	Asleep
	WokenOrRejected
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ParamsBuilt:
		return "params_built"
	case Armed:
		return "armed"
	case Asleep:
		return "asleep"
	case WokenOrRejected:
		return "woken_or_rejected"
	}
	return "unknown"
}

type Sequencer struct {
	d     *types.SleepDescriptor
	regs  regbus.Bus
	modes types.PowerModeTable

	regdma bool
	state  State
	last   types.SleepBudget
}

func New(d *types.SleepDescriptor, regs regbus.Bus) *Sequencer {
	return &Sequencer{d: d, regs: regs, modes: d.Modes}
}

func (s *Sequencer) State() State                    { return s.state }
func (s *Sequencer) LastBudget() types.SleepBudget   { return s.last }
func (s *Sequencer) SetModes(t types.PowerModeTable) { s.modes = t }
func (s *Sequencer) RegdmaEnabled() bool             { return s.regdma }

// Reset returns the sequencer to Idle once the caller has restored the
// awake clock config.
func (s *Sequencer) Reset(_ *clk.Txn) { s.state = Idle }

// ------------------------
// Register-DMA backup
// ------------------------

// EnableRegdmaBackup turns retention backup on. The enable register is
// written only on a change.
func (s *Sequencer) EnableRegdmaBackup(_ *clk.Txn) {
	if s.regdma {
		return
	}
	regbus.WriteField(s.regs, s.d.Regs.RegdmaEnable, 1)
	s.regdma = true
}

func (s *Sequencer) DisableRegdmaBackup(_ *clk.Txn) {
	if !s.regdma {
		return
	}
	regbus.WriteField(s.regs, s.d.Regs.RegdmaEnable, 0)
	s.regdma = false
}

// ------------------------
// Program
// ------------------------

// Program writes the parameters of an attempt: the HP block of the target
// mode, the LP sleep block, the retention edges when backup is on, and
// the wait counters.
func (s *Sequencer) Program(_ *clk.Txn, p Params) error {
	if s.state != ParamsBuilt {
		return errcode.New(errcode.InvalidParams, "pm.program", "state "+s.state.String())
	}
	r := &s.d.Regs
	writeMode(s.regs, &r.HP[p.Mode], &p.HP)
	writeMode(s.regs, &r.LP[types.LPSleep], &p.LP)

	if s.regdma {
		writeRetention(s.regs, &r.HP[types.HPSleep], p.Retention[types.HPSleep])
		writeRetention(s.regs, &r.HP[types.HPActive], p.Retention[types.HPActive])
		if s.modes.HasModem {
			writeRetention(s.regs, &r.HP[types.HPModem], p.Retention[types.HPModem])
		}
	}

	b := &p.Budget
	writeWait(s.regs, r.LpWaitCycles, b.LpWaitCycles)
	writeWait(s.regs, r.HpWaitCycles, b.HpWaitCycles)
	writeWait(s.regs, r.XtalStableWait, b.XtalStableWaitCycles)
	writeWait(s.regs, r.PllStableWait, b.PllStableWaitCycles)
	writeWait(s.regs, r.ModemWakeupWait, b.ModemWakeupWaitCycles)
	writeWait(s.regs, r.RegdmaWait, b.RegdmaWaitCycles)

	s.state = Armed
	return nil
}

// ConfigureDefaults returns the current (trimmed) defaults of mode m. For
// the awake modes it also writes them, for use after the mode table was
// re-trimmed. The sleep block is built per attempt, so for HPSleep only
// the defaults are returned.
func (s *Sequencer) ConfigureDefaults(_ *clk.Txn, m types.HPMode) (types.ModeParams, error) {
	mp, ok := s.modes.HPParams(m)
	if !ok {
		return types.ModeParams{}, errcode.New(errcode.InvalidParams, "pm.configure_defaults", "no "+m.String()+" mode")
	}
	if m == types.HPSleep {
		return mp, nil
	}
	r := &s.d.Regs
	writeMode(s.regs, &r.HP[m], &mp)
	if m == types.HPActive {
		lp := s.modes.LP[types.LPActive]
		writeMode(s.regs, &r.LP[types.LPActive], &lp)
	}
	return mp, nil
}

func writeMode(b regbus.Bus, r *types.ModeRegs, p *types.ModeParams) {
	regbus.WriteField(b, r.DigPower, uint32(p.Power.DigPower))
	regbus.WriteBool(b, r.XpdXtal, p.Power.XpdXtal)
	regbus.WriteBool(b, r.XpdRcFast, p.Power.XpdRcFast)

	regbus.WriteField(b, r.IcgFunc, p.Clock.IcgFunc)
	regbus.WriteField(b, r.IcgAPB, p.Clock.IcgAPB)
	regbus.WriteField(b, r.IcgModem, uint32(p.Clock.IcgModem))
	regbus.WriteField(b, r.SysclkSel, p.Clock.SysclkSel)

	regbus.WriteBool(b, r.XpdBias, p.Analog.XpdBias)
	regbus.WriteField(b, r.DbgAtten, uint32(p.Analog.DbgAtten))
	regbus.WriteBool(b, r.PdCur, p.Analog.PdCur)
	regbus.WriteBool(b, r.BiasSleep, p.Analog.BiasSleep)
	regbus.WriteField(b, r.Dbias, uint32(p.Analog.Dbias))
	regbus.WriteField(b, r.DrvB, p.Analog.DrvB)

	regbus.WriteBool(b, r.HoldAll, p.Digital.HoldAllPads)
	regbus.WriteBool(b, r.PadSlpSel, p.Digital.PadSlpSel)
}

func writeRetention(b regbus.Bus, r *types.ModeRegs, p types.RetentionParams) {
	regbus.WriteField(b, r.BackupMode, uint32(p.BackupMode))
	regbus.WriteField(b, r.BackupClk, p.BackupClk)
	regbus.WriteBool(b, r.BackupEn, p.BackupEnable)
}

// writeWait saturates at the field width instead of wrapping.
func writeWait(b regbus.Bus, f regbus.Field, cycles uint32) {
	regbus.WriteField(b, f, mathx.Clamp(cycles, 0, f.Max()))
}

// ------------------------
// Enter
// ------------------------

// Enter arms the wake and reject sources, requests sleep and waits for
// the outcome. There is no timeout: the core is stopped until a wake
// source fires or the hardware rejects the request. deep selects the
// deep-sleep wake type.
func (s *Sequencer) Enter(_ *clk.Txn, wakeup, reject uint32, deep bool) (types.SleepResult, error) {
	if s.state != Armed {
		return types.SleepNone, errcode.New(errcode.InvalidParams, "pm.enter", "state "+s.state.String())
	}
	r := &s.d.Regs
	regbus.WriteBool(s.regs, r.WakeType, deep)
	regbus.WriteField(s.regs, r.WakeupEnable, wakeup)
	regbus.WriteField(s.regs, r.RejectEnable, reject)
	regbus.WriteField(s.regs, r.IntClear, r.IntClear.Max())

	s.state = Asleep
	regbus.WriteField(s.regs, r.SleepStart, 1)

	var res types.SleepResult
	for {
		if regbus.ReadField(s.regs, r.RejectStatus) != 0 {
			res = types.SleepRejected
			break
		}
		if regbus.ReadField(s.regs, r.WakeupStatus) != 0 {
			res = types.SleepWoken
			break
		}
	}

	if r.FlashIdle.Present() {
		for i := uint32(0); i < r.FlashIdlePoll; i++ {
			if regbus.ReadField(s.regs, r.FlashIdle) != 0 {
				break
			}
		}
	}

	s.state = WokenOrRejected
	return res, nil
}
