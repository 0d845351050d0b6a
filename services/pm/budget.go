package pm

import (
	"powerclock-go/types"
	"powerclock-go/x/mathx"
)

// Budget computes the hardware wait times for one sleep attempt. It is a
// pure function of the chip constants and the request; the caller passes
// the measured clock rates (zero fields take the nominal ones) and
// whether register-DMA backup is active.
func Budget(d *types.SleepDescriptor, cal types.ClockCal, pd types.PowerDown, flags types.SleepFlags, regdma bool, guardAdjUs int32) types.SleepBudget {
	lp := &d.Constants.LP
	hp := &d.Constants.HP
	cal = cal.Or(d.NominalCal())
	slow, fast := cal.SlowHz, cal.FastHz

	var clkPowerOn uint32
	if pd.Has(types.PdXtal) {
		clkPowerOn = lp.XtalStableUs
	} else {
		clkPowerOn = mathx.CyclesToUs(lp.ClkPowerOnCycles, slow)
	}
	lpUs := lp.MinSleepUs + lp.AnalogWaitUs + clkPowerOn +
		mathx.CyclesToUs(lp.ClkSwitchCycles, slow) +
		mathx.CyclesToUs(lp.WakeupWaitCycles, slow) +
		lp.PowerSupplyUs + lp.PowerUpUs

	var regdmaUs uint32
	if regdma {
		if pd.Has(types.PdTop) {
			regdmaUs = hp.RegdmaS2AUs
		} else {
			regdmaUs = hp.RegdmaS2MUs
		}
	}
	var clockUs uint32
	if pd.Has(types.PdXtal) {
		clockUs = hp.XtalStableUs + hp.PllStableUs
	}
	hpUs := hp.AnalogWaitUs + mathx.Max(hp.PowerSupplyUs+hp.PowerUpUs+regdmaUs, clockUs)

	total := lpUs + hpUs
	if flags.Has(types.SleepModemCoex) {
		total += hp.ClockDomainSyncUs + hp.RfOnProtectUs
	}
	total = mathx.SatAdd(total, guardAdjUs)

	b := types.SleepBudget{
		LpWaitCycles:         mathx.UsToCycles(lpUs, slow),
		HpWaitCycles:         mathx.UsToCycles(hpUs, fast),
		XtalStableWaitCycles: mathx.UsToCycles(lp.XtalStableUs, slow),
		PllStableWaitCycles:  mathx.UsToCycles(hp.PllStableUs, fast),
		RegdmaWaitCycles:     mathx.UsToCycles(regdmaUs, fast),
		TotalGuardTimeUs:     total,
		LpWaitUs:             lpUs,
		HpWaitUs:             hpUs,
	}
	if d.Modes.HasModem {
		b.ModemWakeupWaitCycles = mathx.UsToCycles(hp.RegdmaM2AUs+hp.DfsUpUs+hp.MinSleepUs, fast)
	}
	return b
}
