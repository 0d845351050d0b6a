package clk

import (
	"powerclock-go/drivers/regbus"
	"powerclock-go/drivers/regi2c"
	"powerclock-go/errcode"
	"powerclock-go/types"
)

// Pll drives one physical PLL. Its state is only touched with the tree's
// critical section held.
type Pll struct {
	desc *types.PllDesc
	regs regbus.Bus
	ctl  *regi2c.Bus
	st   types.PllState
}

func newPll(d *types.PllDesc, regs regbus.Bus, ctl *regi2c.Bus) *Pll {
	return &Pll{desc: d, regs: regs, ctl: ctl}
}

func (p *Pll) State() types.PllState { return p.st }

// Enable powers the PLL up. Calling it on a running PLL does nothing.
func (p *Pll) Enable() {
	if p.st.Enabled {
		return
	}
	regbus.WriteBool(p.regs, p.desc.Power, true)
	p.st.Enabled = true
}

// ConfigureAndCalibrate programs the dividers for xtalMHz -> freqMHz and
// runs the calibration handshake. On failure the PLL stays enabled but
// unconfigured.
func (p *Pll) ConfigureAndCalibrate(xtalMHz, freqMHz uint32) error {
	const op = "pll.calibrate"
	var entry *types.PllDivEntry
	for i := range p.desc.Dividers {
		e := &p.desc.Dividers[i]
		if e.XtalMHz == xtalMHz && e.FreqMHz == freqMHz {
			entry = e
			break
		}
	}
	if entry == nil {
		return errcode.New(errcode.UnsupportedFrequency, op, p.desc.Name)
	}

	p.st.ConfiguredFreqMHz = 0
	if err := p.ctl.Apply(entry.Writes); err != nil {
		return &errcode.E{C: errcode.Error, Op: op, Msg: p.desc.Name, Err: err}
	}
	if err := p.ctl.WriteField(p.desc.CalStart, 1); err != nil {
		return &errcode.E{C: errcode.Error, Op: op, Msg: p.desc.Name, Err: err}
	}
	locked := false
	for i := uint32(0); i < p.desc.CalPolls; i++ {
		v, err := p.ctl.ReadField(p.desc.CalDone)
		if err != nil {
			return &errcode.E{C: errcode.Error, Op: op, Msg: p.desc.Name, Err: err}
		}
		if v != 0 {
			locked = true
			break
		}
	}
	if err := p.ctl.WriteField(p.desc.CalStart, 0); err != nil {
		return &errcode.E{C: errcode.Error, Op: op, Msg: p.desc.Name, Err: err}
	}
	if err := p.ctl.WriteField(p.desc.CalStop, 1); err != nil {
		return &errcode.E{C: errcode.Error, Op: op, Msg: p.desc.Name, Err: err}
	}
	if !locked {
		println("[clk] pll", p.desc.Name, "calibration timeout")
		return errcode.New(errcode.CalibrationTimeout, op, p.desc.Name)
	}
	p.st.ConfiguredFreqMHz = freqMHz
	println("[clk] pll", p.desc.Name, "locked at", freqMHz, "MHz")
	return nil
}

// Disable powers the PLL down. It refuses while consumers hold it.
func (p *Pll) Disable() error {
	if p.st.Consumers > 0 {
		println("[clk] pll", p.desc.Name, "disable with", p.st.Consumers, "consumers")
		return errcode.New(errcode.ConsumerAccountingViolation, "pll.disable", p.desc.Name)
	}
	if !p.st.Enabled {
		return nil
	}
	regbus.WriteBool(p.regs, p.desc.Power, false)
	p.st = types.PllState{}
	return nil
}

func (p *Pll) addConsumer() { p.st.Consumers++ }

func (p *Pll) removeConsumer() error {
	if p.st.Consumers == 0 {
		println("[clk] pll", p.desc.Name, "consumer underflow")
		return errcode.New(errcode.ConsumerAccountingViolation, "pll.remove_consumer", p.desc.Name)
	}
	p.st.Consumers--
	return nil
}
