package chip

import (
	"powerclock-go/drivers/regbus"
	"powerclock-go/drivers/regi2c"
	"powerclock-go/types"
)

// ESP32-H2 style family: 32 MHz crystal, one 96 MHz BBPLL exposed as two
// fixed taps (96 and 64 MHz), no modem power mode.
const (
	h2PCR    = 0x6009_5000
	h2PMU    = 0x600B_0000
	h2MSPI   = 0x6000_2000
	h2CCount = 0x600C_00F0

	h2BlockBBPLL = 0x66
	h2BlockULP   = 0x61
)

// ESP32H2 returns the H2 tables.
func ESP32H2() *Chip {
	f := regbus.F
	pll := func(reg, msb, lsb uint8) regi2c.Field {
		return regi2c.Field{Block: h2BlockBBPLL, Reg: reg, Msb: msb, Lsb: lsb}
	}
	ocode, ocodeForce := bandgapRegs(h2BlockULP)
	return &Chip{
		Name: "esp32h2",
		Clock: types.ClockDescriptor{
			Name:       "esp32h2",
			XtalMHz:    32,
			FastRcKHz:  8_000,
			CPUMaxMHz:  96,
			MaxXtalDiv: 256,
			Buses: []types.BusDesc{
				{Name: "ahb", MaxMHz: 32, Div: f(h2PCR+0x110, 0, 8)},
				{Name: "apb", MaxMHz: 32, Div: f(h2PCR+0x114, 0, 8)},
			},
			Sources: []types.SourceDesc{
				{Source: types.Crystal(), Sel: 0},
				{Source: types.PllTap(0, 0), Sel: 1, FreqMHz: 96},
				{Source: types.FastRc(), Sel: 2},
				{Source: types.PllTap(0, 1), Sel: 3, FreqMHz: 64},
			},
			Plls: []types.PllDesc{{
				ID:       0,
				Name:     "bbpll",
				FreqsMHz: []uint32{96},
				Power:    f(h2PMU+0x2C0, 26, 1),
				Dividers: []types.PllDivEntry{{
					XtalMHz: 32,
					FreqMHz: 96,
					Writes: []regi2c.Write{
						{Field: pll(2, 3, 0), Val: 0},
						{Field: pll(3, 7, 0), Val: 1},
						{Field: pll(6, 2, 0), Val: 1},
					},
				}},
				CalStart: pll(10, 0, 0),
				CalStop:  pll(10, 1, 1),
				CalDone:  pll(11, 0, 0),
				CalPolls: 10_000,
			}},
			PllTargets: []types.PllTarget{
				{FreqMHz: 96, Source: types.PllTap(0, 0), PllFreqMHz: 96, SourceFreqMHz: 96, Divider: types.Div(1)},
				{FreqMHz: 64, Source: types.PllTap(0, 1), PllFreqMHz: 96, SourceFreqMHz: 64, Divider: types.Div(1)},
				{FreqMHz: 48, Source: types.PllTap(0, 0), PllFreqMHz: 96, SourceFreqMHz: 96, Divider: types.Div(2)},
			},
			Regs: types.ClockRegs{
				SourceSel:    f(h2PCR+0x118, 16, 2),
				RootDiv:      f(h2PCR+0x10C, 0, 8),
				CycleCounter: f(h2CCount, 0, 32),
			},
		},
		Sleep: types.SleepDescriptor{
			Modes: modeTable(modeDefaults{
				hpActiveDbias: 26,
				hpSleepDbias:  10,
				lpActiveDbias: 26,
				lpSleepDbias:  10,
				lpSleepDrvB:   0x1F0,
				xtalSel:       0,
				pllSel:        1,
			}),
			Constants: types.MachineConstants{
				LP: types.LPConstants{
					MinSleepUs:       450,
					AnalogWaitUs:     154,
					XtalStableUs:     250,
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
					RegdmaS2AUs:       420,
					RegdmaA2SUs:       382,
					RfOnProtectUs:     70,
					XtalStableUs:      250,
					PllStableUs:       1,
				},
			},
			Regs:        pmuRegs(h2PMU, f(h2MSPI+0x44, 0, 1)),
			SlowClockHz: 136_000,
			FastClockHz: 8_000_000,
			DefaultPD:   types.PdCPU | types.PdHPPeriph | types.PdXtal | types.PdRcFast,
			OCode:       ocode,
			OCodeForce:  ocodeForce,
		},
	}
}
