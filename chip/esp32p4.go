package chip

import (
	"powerclock-go/drivers/regbus"
	"powerclock-go/drivers/regi2c"
	"powerclock-go/types"
)

// ESP32-P4 style family: 40 MHz crystal, a CPLL that runs at 360 or
// 400 MHz, a fractional CPU divider and a four-stage CPU→MEM→SYS→APB
// chain. No radio, so no modem mode.
const (
	p4HPSysClk = 0x500E_6000
	p4PMU      = 0x5011_5000
	p4MSPI     = 0x5008_C000
	p4CCount   = 0x500E_60F0

	p4BlockCPLL = 0x67
	p4BlockULP  = 0x6D
)

// ESP32P4 returns the P4 tables.
func ESP32P4() *Chip {
	f := regbus.F
	cpll := func(reg, msb, lsb uint8) regi2c.Field {
		return regi2c.Field{Block: p4BlockCPLL, Reg: reg, Msb: msb, Lsb: lsb}
	}
	cpllDiv := func(xtal, freq uint32, div7_0, dchgp uint8) types.PllDivEntry {
		return types.PllDivEntry{
			XtalMHz: xtal,
			FreqMHz: freq,
			Writes: []regi2c.Write{
				{Field: cpll(2, 3, 0), Val: 0},
				{Field: cpll(3, 7, 0), Val: div7_0},
				{Field: cpll(2, 6, 4), Val: dchgp},
				{Field: cpll(6, 2, 0), Val: 3},
			},
		}
	}
	cpllTap := types.PllTap(0, 0)
	ocode, ocodeForce := bandgapRegs(p4BlockULP)
	return &Chip{
		Name: "esp32p4",
		Clock: types.ClockDescriptor{
			Name:       "esp32p4",
			XtalMHz:    40,
			FastRcKHz:  20_000,
			CPUMaxMHz:  400,
			MaxXtalDiv: 256,
			Fractional: true,
			Buses: []types.BusDesc{
				{Name: "mem", MaxMHz: 200, Div: f(p4HPSysClk+0x10, 0, 8)},
				{Name: "sys", MaxMHz: 100, Div: f(p4HPSysClk+0x14, 0, 8)},
				{Name: "apb", MaxMHz: 100, Div: f(p4HPSysClk+0x18, 0, 8)},
			},
			Sources: []types.SourceDesc{
				{Source: types.Crystal(), Sel: 0},
				{Source: cpllTap, Sel: 1},
				{Source: types.FastRc(), Sel: 2},
			},
			Plls: []types.PllDesc{{
				ID:       0,
				Name:     "cpll",
				FreqsMHz: []uint32{360, 400},
				Power:    f(p4PMU+0x2C0, 27, 1),
				Dividers: []types.PllDivEntry{
					cpllDiv(40, 360, 7, 5),
					cpllDiv(40, 400, 8, 5),
				},
				CalStart: cpll(10, 0, 0),
				CalStop:  cpll(10, 1, 1),
				CalDone:  cpll(11, 0, 0),
				CalPolls: 10_000,
			}},
			PllTargets: []types.PllTarget{
				{FreqMHz: 400, Source: cpllTap, PllFreqMHz: 400, SourceFreqMHz: 400, Divider: types.Div(1)},
				{FreqMHz: 360, Source: cpllTap, PllFreqMHz: 360, SourceFreqMHz: 360, Divider: types.Div(1)},
				{FreqMHz: 240, Source: cpllTap, PllFreqMHz: 360, SourceFreqMHz: 360, Divider: types.Fraction{Int: 1, Num: 1, Den: 2}},
				{FreqMHz: 200, Source: cpllTap, PllFreqMHz: 400, SourceFreqMHz: 400, Divider: types.Div(2)},
				{FreqMHz: 180, Source: cpllTap, PllFreqMHz: 360, SourceFreqMHz: 360, Divider: types.Div(2)},
				{FreqMHz: 120, Source: cpllTap, PllFreqMHz: 360, SourceFreqMHz: 360, Divider: types.Div(3)},
				{FreqMHz: 100, Source: cpllTap, PllFreqMHz: 400, SourceFreqMHz: 400, Divider: types.Div(4)},
				{FreqMHz: 90, Source: cpllTap, PllFreqMHz: 360, SourceFreqMHz: 360, Divider: types.Div(4)},
			},
			Regs: types.ClockRegs{
				SourceSel:    f(p4HPSysClk+0x00, 0, 2),
				RootDiv:      f(p4HPSysClk+0x0C, 0, 8),
				RootDivNum:   f(p4HPSysClk+0x0C, 8, 8),
				RootDivDen:   f(p4HPSysClk+0x0C, 16, 8),
				CycleCounter: f(p4CCount, 0, 32),
			},
		},
		Sleep: types.SleepDescriptor{
			Modes: modeTable(modeDefaults{
				hpActiveDbias: 27,
				hpSleepDbias:  14,
				lpActiveDbias: 28,
				lpSleepDbias:  12,
				lpSleepDrvB:   0x2F0,
				xtalSel:       0,
				pllSel:        1,
			}),
			Constants: types.MachineConstants{
				LP: types.LPConstants{
					MinSleepUs:       450,
					AnalogWaitUs:     154,
					XtalStableUs:     1000,
					ClkSwitchCycles:  1,
					ClkPowerOnCycles: 1,
					WakeupWaitCycles: 4,
					PowerSupplyUs:    2,
					PowerUpUs:        2,
					IsolateUs:        1,
					ResetUs:          1,
				},
				HP: types.HPConstants{
					MinSleepUs:        450,
					ClockDomainSyncUs: 150,
					DfsUpUs:           124,
					AnalogWaitUs:      154,
					PowerSupplyUs:     2,
					PowerUpUs:         2,
					RegdmaS2MUs:       172,
					RegdmaS2AUs:       600,
					RegdmaA2SUs:       400,
					XtalStableUs:      1000,
					PllStableUs:       50,
				},
			},
			Regs:        pmuRegs(p4PMU, f(p4MSPI+0x44, 0, 1)),
			SlowClockHz: 136_000,
			FastClockHz: 20_000_000,
			DefaultPD:   types.PdCPU | types.PdHPPeriph | types.PdXtal | types.PdRcFast,
			OCode:       ocode,
			OCodeForce:  ocodeForce,
		},
	}
}
