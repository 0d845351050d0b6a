package chip

import (
	"powerclock-go/drivers/regbus"
	"powerclock-go/drivers/regi2c"
	"powerclock-go/types"
)

// The PMU register file is shared by the families below: one block per
// HP mode, one per LP mode, then the wait and handshake registers.
const (
	pmuModeStride = 0x30

	offDigPower  = 0x00
	offIcgFunc   = 0x04
	offIcgAPB    = 0x08
	offIcgModem  = 0x0C
	offSysclk    = 0x10
	offBias      = 0x14
	offBackup    = 0x18
	offBackupClk = 0x1C
	offReg0      = 0x20
	offReg1      = 0x24
	offXtal      = 0x28

	offLPBase     = 0x100
	offWaitBase   = 0x180
	offHandshake  = 0x1C0
	offRegdmaConf = 0x1F0
)

func modeRegs(base uint32) types.ModeRegs {
	f := regbus.F
	return types.ModeRegs{
		DigPower:   f(base+offDigPower, 0, 9),
		IcgFunc:    f(base+offIcgFunc, 0, 32),
		IcgAPB:     f(base+offIcgAPB, 0, 32),
		IcgModem:   f(base+offIcgModem, 0, 2),
		SysclkSel:  f(base+offSysclk, 16, 2),
		HoldAll:    f(base+offSysclk, 3, 1),
		PadSlpSel:  f(base+offSysclk, 4, 1),
		XpdBias:    f(base+offBias, 25, 1),
		DbgAtten:   f(base+offBias, 26, 4),
		PdCur:      f(base+offBias, 30, 1),
		BiasSleep:  f(base+offBias, 31, 1),
		BackupMode: f(base+offBackup, 4, 3),
		BackupEn:   f(base+offBackup, 29, 1),
		BackupClk:  f(base+offBackupClk, 0, 32),
		Dbias:      f(base+offReg0, 26, 5),
		DrvB:       f(base+offReg1, 8, 24),
		XpdRcFast:  f(base+offXtal, 30, 1),
		XpdXtal:    f(base+offXtal, 31, 1),
	}
}

// lpModeRegs drops the fields the LP domain does not have.
func lpModeRegs(base uint32) types.ModeRegs {
	r := modeRegs(base)
	r.IcgFunc = regbus.Field{}
	r.IcgAPB = regbus.Field{}
	r.IcgModem = regbus.Field{}
	r.SysclkSel = regbus.Field{}
	r.HoldAll = regbus.Field{}
	r.PadSlpSel = regbus.Field{}
	r.BackupMode = regbus.Field{}
	r.BackupEn = regbus.Field{}
	r.BackupClk = regbus.Field{}
	return r
}

func pmuRegs(base uint32, flashIdle regbus.Field) types.PowerRegs {
	f := regbus.F
	var r types.PowerRegs
	for m := types.HPMode(0); m < types.NumHPModes; m++ {
		r.HP[m] = modeRegs(base + uint32(m)*pmuModeStride)
	}
	for m := types.LPMode(0); m < types.NumLPModes; m++ {
		r.LP[m] = lpModeRegs(base + offLPBase + uint32(m)*pmuModeStride)
	}
	w := base + offWaitBase
	r.LpWaitCycles = f(w+0x00, 0, 16)
	r.HpWaitCycles = f(w+0x04, 0, 16)
	r.XtalStableWait = f(w+0x08, 0, 16)
	r.PllStableWait = f(w+0x0C, 0, 16)
	r.ModemWakeupWait = f(w+0x10, 0, 16)
	r.RegdmaWait = f(w+0x14, 0, 16)

	h := base + offHandshake
	r.WakeType = f(h+0x00, 0, 1)
	r.WakeupEnable = f(h+0x04, 0, 31)
	r.RejectEnable = f(h+0x08, 0, 17)
	r.IntClear = f(h+0x0C, 0, 2)
	r.SleepStart = f(h+0x10, 31, 1)
	r.WakeupStatus = f(h+0x14, 0, 1)
	r.RejectStatus = f(h+0x14, 1, 1)
	r.FlashIdle = flashIdle
	r.FlashIdlePoll = 1000

	r.RegdmaEnable = f(base+offRegdmaConf, 0, 1)
	return r
}

// Bandgap o-code lives in the ULP analog block: an 8-bit external code
// and a force bit that selects it over the internal default.
func bandgapRegs(block uint8) (code, force regi2c.Field) {
	code = regi2c.Field{Block: block, Reg: 6, Msb: 7, Lsb: 0}
	force = regi2c.Field{Block: block, Reg: 5, Msb: 6, Lsb: 6}
	return code, force
}

// Status bits cleared through IntClear.
const (
	IntWakeup = 1 << 0
	IntReject = 1 << 1
)

// Factory-default mode tables share one shape; families differ in the
// regulator codes and in whether the modem mode exists.
type modeDefaults struct {
	hpActiveDbias, hpModemDbias, hpSleepDbias uint8
	lpActiveDbias, lpSleepDbias               uint8
	lpSleepDrvB                               uint32
	xtalSel, pllSel                           uint32
	hasModem                                  bool
}

func modeTable(d modeDefaults) types.PowerModeTable {
	var t types.PowerModeTable
	t.HasModem = d.hasModem

	t.HP[types.HPActive] = types.ModeParams{
		Power: types.PowerParams{XpdXtal: true, XpdRcFast: true},
		Clock: types.ClockParams{IcgFunc: 0xFFFF_FFFF, IcgAPB: 0xFFFF_FFFF, IcgModem: 2, SysclkSel: d.pllSel},
		Analog: types.AnalogParams{
			XpdBias: true,
			Dbias:   d.hpActiveDbias,
		},
		Retention: types.RetentionParams{BackupEnable: true, BackupMode: 1, BackupClk: 0xFFFF_FFFF},
	}
	if d.hasModem {
		t.HP[types.HPModem] = types.ModeParams{
			Power: types.PowerParams{DigPower: types.PdCPU, XpdXtal: true},
			Clock: types.ClockParams{IcgFunc: 0x0000_0003, IcgAPB: 0x0000_0F00, IcgModem: 1, SysclkSel: d.pllSel},
			Analog: types.AnalogParams{
				XpdBias:  true,
				DbgAtten: 0x1,
				Dbias:    d.hpModemDbias,
			},
			Retention: types.RetentionParams{BackupEnable: true, BackupMode: 2, BackupClk: 0x0000_FFFF},
		}
	}
	t.HP[types.HPSleep] = types.ModeParams{
		Power: types.PowerParams{DigPower: types.PdCPU | types.PdHPPeriph},
		Clock: types.ClockParams{IcgModem: 0, SysclkSel: d.xtalSel},
		Analog: types.AnalogParams{
			DbgAtten:  0xC,
			PdCur:     true,
			BiasSleep: true,
			Dbias:     d.hpSleepDbias,
		},
		Digital:   types.DigitalParams{PadSlpSel: true},
		Retention: types.RetentionParams{BackupEnable: true, BackupMode: 0, BackupClk: 0xFFFF_FFFF},
	}

	t.LP[types.LPActive] = types.ModeParams{
		Power:  types.PowerParams{XpdXtal: true, XpdRcFast: true},
		Analog: types.AnalogParams{XpdBias: true, Dbias: d.lpActiveDbias},
	}
	t.LP[types.LPSleep] = types.ModeParams{
		Analog: types.AnalogParams{
			DbgAtten:  0xC,
			PdCur:     true,
			BiasSleep: true,
			Dbias:     d.lpSleepDbias,
			DrvB:      d.lpSleepDrvB,
		},
	}
	return t
}
