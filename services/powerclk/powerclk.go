// Package powerclk is the caller-facing API over the clock tree and the
// sleep sequencer. It wires both to one chip, one register bus, one
// control bus and one critical section.
package powerclk

import (
	"powerclock-go/bus"
	"powerclock-go/chip"
	"powerclock-go/drivers/regbus"
	"powerclock-go/drivers/regi2c"
	"powerclock-go/errcode"
	"powerclock-go/services/clk"
	"powerclock-go/services/pm"
	"powerclock-go/trim"
	"powerclock-go/types"
	"powerclock-go/x/critsec"

	"tinygo.org/x/drivers"
)

type Config struct {
	Hooks []clk.Hook
	// Bus, when set, receives clock and sleep notifications.
	Bus *bus.Bus
}

type System struct {
	chip   *chip.Chip
	tree   *clk.Tree
	seq    *pm.Sequencer
	trim   trim.Source
	cal    types.ClockCal
	notify *NotifyHook
}

// New builds a System. The trim source is read once here: regulator
// offsets go into the mode table and a programmed o-code is written to
// the bandgap on the control bus.
func New(c *chip.Chip, regs regbus.Bus, ctl drivers.I2C, ts trim.Source, cfg Config) (*System, error) {
	if ts == nil {
		ts = trim.None
	}
	s := &System{chip: c, trim: ts}
	ctlBus := regi2c.New(ctl)

	hooks := append(clk.Hooks{}, cfg.Hooks...)
	if cfg.Bus != nil {
		s.notify = NewNotifyHook(cfg.Bus.NewConnection("powerclk"))
		hooks = append(hooks, s.notify)
	}

	sec := critsec.New()
	s.tree = clk.New(&c.Clock, regs, ctlBus, clk.Config{
		Hook:    hooks,
		Section: sec,
		XtalMHz: ts.XtalFreqMHz(),
	})
	s.seq = pm.New(&c.Sleep, regs)
	s.seq.SetModes(pm.ApplyTrim(c.Sleep.Modes, ts.DbiasOffsets()))

	if oc := ts.OCode(); oc != 0 {
		x := s.tree.Lock()
		err := writeOCode(ctlBus, &c.Sleep, oc)
		x.Unlock()
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func writeOCode(b *regi2c.Bus, d *types.SleepDescriptor, oc uint8) error {
	if !d.OCode.Present() {
		return nil
	}
	if err := b.WriteField(d.OCode, oc); err != nil {
		return &errcode.E{C: errcode.Error, Op: "powerclk.ocode", Err: err}
	}
	if err := b.WriteField(d.OCodeForce, 1); err != nil {
		return &errcode.E{C: errcode.Error, Op: "powerclk.ocode", Err: err}
	}
	return nil
}

func (s *System) Chip() *chip.Chip         { return s.chip }
func (s *System) Tree() *clk.Tree          { return s.tree }
func (s *System) Sequencer() *pm.Sequencer { return s.seq }

// ------------------------
// Clock
// ------------------------

// SetCPUFrequency resolves mhz and switches to it.
func (s *System) SetCPUFrequency(mhz uint32) error {
	cfg, err := s.tree.Resolve(mhz)
	if err != nil {
		return err
	}
	return s.tree.SetConfig(cfg)
}

// MustSetCPUFrequency is SetCPUFrequency for firmware that treats any
// failure as fatal.
func (s *System) MustSetCPUFrequency(mhz uint32) {
	if err := s.SetCPUFrequency(mhz); err != nil {
		panic(err.Error())
	}
}

func (s *System) CPUFrequency() uint32 { return s.tree.Current().FreqMHz }

func (s *System) PllAddConsumer(id types.PllID) error    { return s.tree.PllAddConsumer(id) }
func (s *System) PllRemoveConsumer(id types.PllID) error { return s.tree.PllRemoveConsumer(id) }

// ------------------------
// Sleep
// ------------------------

// SleepRequest describes one sleep attempt.
type SleepRequest struct {
	Mode          types.HPMode
	Flags         types.SleepFlags
	PD            types.PowerDown
	GuardAdjustUs int32
	Wakeup        uint32 // wake source mask
	Reject        uint32 // sources that abort entry
	Deep          bool
	Regdma        bool // keep register-DMA backup across the attempt

	// Cal overrides the measured clock rates for this attempt. Zero
	// fields take the SetClockCal values, then the chip's nominal ones.
	Cal types.ClockCal
}

// SetClockCal records measured LP/HP clock rates for later sleep budgets.
func (s *System) SetClockCal(cal types.ClockCal) {
	x := s.tree.Lock()
	s.cal = cal
	x.Unlock()
}

func (s *System) clockCal(req SleepRequest) types.ClockCal {
	return req.Cal.Or(s.cal).Or(s.chip.Sleep.NominalCal())
}

// EnterSleep sleeps in mode with the chip's default power-down set.
func (s *System) EnterSleep(mode types.HPMode, wakeup, reject uint32, deep bool) (types.SleepResult, error) {
	return s.EnterSleepWith(SleepRequest{
		Mode:   mode,
		PD:     s.chip.Sleep.DefaultPD,
		Wakeup: wakeup,
		Reject: reject,
		Deep:   deep,
	})
}

// EnterSleepWith runs a full attempt: drop the CPU to the crystal, build
// and program the parameters from that config, sleep, then restore the
// clock config that was running before. A rejected attempt is a result,
// not an error.
func (s *System) EnterSleepWith(req SleepRequest) (types.SleepResult, error) {
	x := s.tree.Lock()
	defer x.Unlock()

	saved := x.Current()
	if saved.Source.Kind != types.SrcCrystal {
		if err := x.SetCrystal(); err != nil {
			return types.SleepNone, err
		}
	}

	if req.Regdma {
		s.seq.EnableRegdmaBackup(x)
	} else {
		s.seq.DisableRegdmaBackup(x)
	}

	res, err := s.sleep(x, req)
	s.seq.Reset(x)

	if rerr := x.SetConfig(saved); rerr != nil && err == nil {
		err = rerr
	}
	if err == nil && s.notify != nil {
		s.notify.AfterSleep(res, s.seq.LastBudget())
	}
	return res, err
}

func (s *System) sleep(x *clk.Txn, req SleepRequest) (types.SleepResult, error) {
	p, err := s.seq.BuildParams(x, req.Mode, req.Flags, req.PD, req.GuardAdjustUs, s.clockCal(req))
	if err != nil {
		return types.SleepNone, err
	}
	if err := s.seq.Program(x, p); err != nil {
		return types.SleepNone, err
	}
	return s.seq.Enter(x, req.Wakeup, req.Reject, req.Deep)
}

// ConfigurePowerModeDefaults returns the trimmed defaults of mode, for
// policy code such as automatic light sleep. Active and Modem defaults are
// also written to hardware; Sleep is programmed per attempt.
func (s *System) ConfigurePowerModeDefaults(mode types.HPMode) (types.ModeParams, error) {
	x := s.tree.Lock()
	defer x.Unlock()
	return s.seq.ConfigureDefaults(x, mode)
}

// SleepBudget previews the budget of a request without touching hardware.
func (s *System) SleepBudget(req SleepRequest) types.SleepBudget {
	x := s.tree.Lock()
	cal := s.clockCal(req)
	x.Unlock()
	return pm.Budget(&s.chip.Sleep, cal, req.PD, req.Flags, req.Regdma, req.GuardAdjustUs)
}
