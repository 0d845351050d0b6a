package pm

import (
	"powerclock-go/errcode"
	"powerclock-go/services/clk"
	"powerclock-go/trim"
	"powerclock-go/types"
)

// Params is everything Program writes for one attempt.
type Params struct {
	Mode  types.HPMode // HP mode held while asleep
	PD    types.PowerDown
	Flags types.SleepFlags

	HP types.ModeParams // block of Mode
	LP types.ModeParams // LP sleep block

	// Retention edges, indexed by the HP block they are written to:
	// Sleep holds active->sleep, Active holds sleep->active and Modem
	// holds modem->active.
	Retention [types.NumHPModes]types.RetentionParams

	Budget types.SleepBudget
}

// BuildParams derives an attempt's parameters from the mode defaults, the
// requested power-down set, the measured LP/HP clock rates and the clock
// config the CPU is running now.
func (s *Sequencer) BuildParams(x *clk.Txn, mode types.HPMode, flags types.SleepFlags, pd types.PowerDown, guardAdjUs int32, cal types.ClockCal) (Params, error) {
	const op = "pm.build_params"
	if s.state == Asleep {
		return Params{}, errcode.New(errcode.InvalidParams, op, "asleep")
	}
	if mode == types.HPActive {
		return Params{}, errcode.New(errcode.InvalidParams, op, "active is not a sleep mode")
	}
	hp, ok := s.modes.HPParams(mode)
	if !ok {
		return Params{}, errcode.New(errcode.InvalidParams, op, "no "+mode.String()+" mode")
	}
	if flags.Has(types.SleepViaModem) && !s.modes.HasModem {
		return Params{}, errcode.New(errcode.InvalidParams, op, "no modem mode")
	}
	cur := x.Current()
	if cur.Source.IsPll() && pd.Has(types.PdXtal) {
		return Params{}, errcode.New(errcode.InvalidParams, op, "crystal feeds the running pll")
	}

	hp.Power.DigPower = pd & types.PdDomainMask
	hp.Power.XpdXtal = !pd.Has(types.PdXtal)
	hp.Power.XpdRcFast = !pd.Has(types.PdRcFast)
	hp.Clock.SysclkSel = x.SourceSel()

	lp := s.modes.LP[types.LPSleep]
	lp.Power.XpdXtal = !pd.Has(types.PdXtal32K) && !pd.Has(types.PdXtal)
	lp.Power.XpdRcFast = !pd.Has(types.PdRcFast)

	p := Params{
		Mode:  mode,
		PD:    pd,
		Flags: flags,
		HP:    hp,
		LP:    lp,
	}
	p.Retention[types.HPSleep] = s.modes.HP[types.HPSleep].Retention
	p.Retention[types.HPActive] = s.modes.HP[types.HPActive].Retention
	if s.modes.HasModem {
		p.Retention[types.HPModem] = s.modes.HP[types.HPModem].Retention
	}
	if pd.Has(types.PdTop) {
		// Top domain loses state: restore everything on the way back.
		p.Retention[types.HPActive].BackupMode = 0
	}

	p.Budget = Budget(s.d, cal, pd, flags, s.regdma, guardAdjUs)
	s.last = p.Budget
	s.state = ParamsBuilt
	return p, nil
}

// ApplyTrim returns t with the efuse regulator offsets applied to every
// mode's dbias code.
func ApplyTrim(t types.PowerModeTable, off trim.Dbias) types.PowerModeTable {
	const dbiasMax = 31
	hp := &t.HP
	hp[types.HPActive].Analog.Dbias = trim.ApplyDbias(hp[types.HPActive].Analog.Dbias, off.HPActive, dbiasMax)
	if t.HasModem {
		hp[types.HPModem].Analog.Dbias = trim.ApplyDbias(hp[types.HPModem].Analog.Dbias, off.HPModem, dbiasMax)
	}
	hp[types.HPSleep].Analog.Dbias = trim.ApplyDbias(hp[types.HPSleep].Analog.Dbias, off.HPSleep, dbiasMax)
	t.LP[types.LPActive].Analog.Dbias = trim.ApplyDbias(t.LP[types.LPActive].Analog.Dbias, off.LPActive, dbiasMax)
	t.LP[types.LPSleep].Analog.Dbias = trim.ApplyDbias(t.LP[types.LPSleep].Analog.Dbias, off.LPSleep, dbiasMax)
	return t
}
