package chip

import (
	"powerclock-go/drivers/regbus"
	"powerclock-go/drivers/regi2c"
	"powerclock-go/types"
)

// ESP32-C6 style family: 40 MHz crystal, one 480 MHz BBPLL, CPU→AHB→APB
// chain and a modem power mode for radio coexistence.
const (
	c6PCR    = 0x6009_6000
	c6PMU    = 0x600B_0000
	c6MSPI   = 0x6000_2000
	c6CCount = 0x600C_00F0

	c6BlockBBPLL = 0x66
	c6BlockULP   = 0x61
)

var c6BBPLL = struct {
	refDiv, div7_0, dr1, dr3, dchgp, dcur, vcoDbias regi2c.Field
	calStart, calStop, calDone                     regi2c.Field
}{
	refDiv:   regi2c.Field{Block: c6BlockBBPLL, Reg: 2, Msb: 3, Lsb: 0},
	dchgp:    regi2c.Field{Block: c6BlockBBPLL, Reg: 2, Msb: 6, Lsb: 4},
	div7_0:   regi2c.Field{Block: c6BlockBBPLL, Reg: 3, Msb: 7, Lsb: 0},
	dr1:      regi2c.Field{Block: c6BlockBBPLL, Reg: 5, Msb: 2, Lsb: 0},
	dr3:      regi2c.Field{Block: c6BlockBBPLL, Reg: 5, Msb: 6, Lsb: 4},
	dcur:     regi2c.Field{Block: c6BlockBBPLL, Reg: 6, Msb: 2, Lsb: 0},
	vcoDbias: regi2c.Field{Block: c6BlockBBPLL, Reg: 9, Msb: 1, Lsb: 0},
	calStart: regi2c.Field{Block: c6BlockBBPLL, Reg: 10, Msb: 0, Lsb: 0},
	calStop:  regi2c.Field{Block: c6BlockBBPLL, Reg: 10, Msb: 1, Lsb: 1},
	calDone:  regi2c.Field{Block: c6BlockBBPLL, Reg: 11, Msb: 0, Lsb: 0},
}

// ESP32C6 returns the C6 tables.
func ESP32C6() *Chip {
	f := regbus.F
	p := c6BBPLL
	ocode, ocodeForce := bandgapRegs(c6BlockULP)
	return &Chip{
		Name: "esp32c6",
		Clock: types.ClockDescriptor{
			Name:       "esp32c6",
			XtalMHz:    40,
			FastRcKHz:  17_500,
			CPUMaxMHz:  160,
			MaxXtalDiv: 256,
			Buses: []types.BusDesc{
				{Name: "ahb", MaxMHz: 80, Div: f(c6PCR+0x110, 0, 8)},
				{Name: "apb", MaxMHz: 40, Div: f(c6PCR+0x114, 0, 8)},
			},
			Sources: []types.SourceDesc{
				{Source: types.Crystal(), Sel: 0},
				{Source: types.PllTap(0, 0), Sel: 1, FreqMHz: 480},
				{Source: types.FastRc(), Sel: 2},
			},
			Plls: []types.PllDesc{{
				ID:       0,
				Name:     "bbpll",
				FreqsMHz: []uint32{480},
				Power:    f(c6PMU+0x2C0, 26, 1),
				Dividers: []types.PllDivEntry{{
					XtalMHz: 40,
					FreqMHz: 480,
					Writes: []regi2c.Write{
						{Field: p.refDiv, Val: 0},
						{Field: p.div7_0, Val: 8},
						{Field: p.dr1, Val: 0},
						{Field: p.dr3, Val: 0},
						{Field: p.dchgp, Val: 5},
						{Field: p.dcur, Val: 3},
						{Field: p.vcoDbias, Val: 2},
					},
				}},
				CalStart: p.calStart,
				CalStop:  p.calStop,
				CalDone:  p.calDone,
				CalPolls: 10_000,
			}},
			PllTargets: []types.PllTarget{
				{FreqMHz: 160, Source: types.PllTap(0, 0), PllFreqMHz: 480, SourceFreqMHz: 480, Divider: types.Div(3)},
				{FreqMHz: 120, Source: types.PllTap(0, 0), PllFreqMHz: 480, SourceFreqMHz: 480, Divider: types.Div(4)},
				{FreqMHz: 80, Source: types.PllTap(0, 0), PllFreqMHz: 480, SourceFreqMHz: 480, Divider: types.Div(6)},
			},
			Regs: types.ClockRegs{
				SourceSel:    f(c6PCR+0x118, 16, 2),
				RootDiv:      f(c6PCR+0x10C, 0, 8),
				CycleCounter: f(c6CCount, 0, 32),
			},
		},
		Sleep: types.SleepDescriptor{
			Modes: modeTable(modeDefaults{
				hpActiveDbias: 25,
				hpModemDbias:  24,
				hpSleepDbias:  12,
				lpActiveDbias: 26,
				lpSleepDbias:  12,
				lpSleepDrvB:   0x1F0,
				xtalSel:       0,
				pllSel:        1,
				hasModem:      true,
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
					RegdmaS2AUs:       480,
					RegdmaM2AUs:       278,
					RegdmaA2SUs:       382,
					RfOnProtectUs:     70,
					XtalStableUs:      250,
					PllStableUs:       1,
				},
			},
			Regs:        pmuRegs(c6PMU, f(c6MSPI+0x44, 0, 1)),
			SlowClockHz: 136_000,
			FastClockHz: 17_500_000,
			DefaultPD:   types.PdCPU | types.PdHPPeriph | types.PdXtal | types.PdRcFast,
			OCode:       ocode,
			OCodeForce:  ocodeForce,
		},
	}
}
