package types

import (
	"powerclock-go/drivers/regbus"
	"powerclock-go/drivers/regi2c"
)

// ------------------------
// Power modes
// ------------------------

type HPMode uint8

const (
	HPActive HPMode = iota
	HPModem
	HPSleep
	NumHPModes
)

func (m HPMode) String() string {
	switch m {
	case HPActive:
		return "active"
	case HPModem:
		return "modem"
	case HPSleep:
		return "sleep"
	}
	return "unknown"
}

type LPMode uint8

const (
	LPActive LPMode = iota
	LPSleep
	NumLPModes
)

// PowerDown selects what is powered down while asleep.
type PowerDown uint32

const (
	PdTop      PowerDown = 1 << 0
	PdVddSdio  PowerDown = 1 << 1
	PdModem    PowerDown = 1 << 2
	PdHPPeriph PowerDown = 1 << 3
	PdCPU      PowerDown = 1 << 4
	PdMem      PowerDown = 1 << 5
	PdXtal     PowerDown = 1 << 6
	PdRcFast   PowerDown = 1 << 7
	PdXtal32K  PowerDown = 1 << 8

	// Domain power switch bits carried in PowerParams.DigPower.
	PdDomainMask = PdTop | PdModem | PdHPPeriph | PdCPU | PdMem
)

func (p PowerDown) Has(flag PowerDown) bool { return p&flag != 0 }

// SleepFlags tune how a sleep attempt is built.
type SleepFlags uint32

const (
	// SleepModemCoex keeps the radio coexistence path alive and adds the
	// clock-domain sync and RF-on protection to the guard time.
	SleepModemCoex SleepFlags = 1 << 0
	// SleepViaModem routes the wakeup through the modem mode.
	SleepViaModem SleepFlags = 1 << 1
)

func (f SleepFlags) Has(flag SleepFlags) bool { return f&flag != 0 }

// SleepResult is the outcome of one sleep attempt. Rejected is normal:
// a wake condition raced the entry and the hardware aborted it. SleepNone
// is returned alongside an error when no attempt completed.
type SleepResult uint8

const (
	SleepNone SleepResult = iota
	SleepWoken
	SleepRejected
)

func (r SleepResult) String() string {
	switch r {
	case SleepWoken:
		return "woken"
	case SleepRejected:
		return "rejected"
	}
	return "none"
}

// ------------------------
// Mode parameters
// ------------------------

type PowerParams struct {
	DigPower  PowerDown // domain power switches to turn off
	XpdXtal   bool
	XpdRcFast bool
}

type ClockParams struct {
	IcgFunc   uint32
	IcgAPB    uint32
	IcgModem  uint8
	SysclkSel uint32 // CPU source mux value while in the mode
}

type AnalogParams struct {
	XpdBias   bool
	DbgAtten  uint8
	PdCur     bool
	BiasSleep bool
	Dbias     uint8
	DrvB      uint32
}

type DigitalParams struct {
	HoldAllPads bool
	PadSlpSel   bool
}

type RetentionParams struct {
	BackupEnable bool
	BackupMode   uint8
	BackupClk    uint32
}

// ModeParams is the full register-level description of one power mode.
type ModeParams struct {
	Power     PowerParams
	Clock     ClockParams
	Analog    AnalogParams
	Digital   DigitalParams
	Retention RetentionParams
}

// PowerModeTable holds the read-only defaults of a chip. Modem is only
// meaningful when HasModem is set.
type PowerModeTable struct {
	HP       [NumHPModes]ModeParams
	LP       [NumLPModes]ModeParams
	HasModem bool
}

// HPParams returns the defaults for m, false when the chip lacks it.
func (t *PowerModeTable) HPParams(m HPMode) (ModeParams, bool) {
	if m >= NumHPModes || (m == HPModem && !t.HasModem) {
		return ModeParams{}, false
	}
	return t.HP[m], true
}

// ------------------------
// Machine constants
// ------------------------

type LPConstants struct {
	MinSleepUs       uint32
	AnalogWaitUs     uint32
	XtalStableUs     uint32
	ClkSwitchCycles  uint32
	ClkPowerOnCycles uint32
	WakeupWaitCycles uint32
	PowerSupplyUs    uint32
	PowerUpUs        uint32
	IsolateUs        uint32
	ResetUs          uint32
}

type HPConstants struct {
	MinSleepUs        uint32
	ClockDomainSyncUs uint32
	DfsUpUs           uint32
	AnalogWaitUs      uint32
	PowerSupplyUs     uint32
	PowerUpUs         uint32
	RegdmaS2MUs       uint32
	RegdmaS2AUs       uint32
	RegdmaM2AUs       uint32
	RegdmaA2SUs       uint32
	RfOnProtectUs     uint32
	XtalStableUs      uint32
	PllStableUs       uint32
}

// MachineConstants are fixed per-chip hardware wait times.
type MachineConstants struct {
	LP LPConstants
	HP HPConstants
}

// ClockCal holds measured LP (slow) and HP (fast) clock rates. A zero
// field means not measured.
type ClockCal struct {
	SlowHz uint32
	FastHz uint32
}

// Or fills the unmeasured fields of c from d.
func (c ClockCal) Or(d ClockCal) ClockCal {
	if c.SlowHz == 0 {
		c.SlowHz = d.SlowHz
	}
	if c.FastHz == 0 {
		c.FastHz = d.FastHz
	}
	return c
}

// SleepBudget is derived per sleep attempt and never cached.
type SleepBudget struct {
	LpWaitCycles          uint32
	HpWaitCycles          uint32
	XtalStableWaitCycles  uint32
	PllStableWaitCycles   uint32
	ModemWakeupWaitCycles uint32
	RegdmaWaitCycles      uint32
	TotalGuardTimeUs      uint32

	LpWaitUs uint32
	HpWaitUs uint32
}

// ------------------------
// Power registers
// ------------------------

// ModeRegs locates the per-mode register block of one domain.
type ModeRegs struct {
	DigPower   regbus.Field
	XpdXtal    regbus.Field
	XpdRcFast  regbus.Field
	IcgFunc    regbus.Field
	IcgAPB     regbus.Field
	IcgModem   regbus.Field
	SysclkSel  regbus.Field
	XpdBias    regbus.Field
	DbgAtten   regbus.Field
	PdCur      regbus.Field
	BiasSleep  regbus.Field
	Dbias      regbus.Field
	DrvB       regbus.Field
	HoldAll    regbus.Field
	PadSlpSel  regbus.Field
	BackupEn   regbus.Field
	BackupMode regbus.Field
	BackupClk  regbus.Field
}

// PowerRegs locates the power-management unit controls.
type PowerRegs struct {
	HP [NumHPModes]ModeRegs
	LP [NumLPModes]ModeRegs

	RegdmaEnable regbus.Field

	LpWaitCycles    regbus.Field
	HpWaitCycles    regbus.Field
	XtalStableWait  regbus.Field
	PllStableWait   regbus.Field
	ModemWakeupWait regbus.Field
	RegdmaWait      regbus.Field

	WakeType      regbus.Field
	WakeupEnable  regbus.Field
	RejectEnable  regbus.Field
	IntClear      regbus.Field
	SleepStart    regbus.Field
	WakeupStatus  regbus.Field
	RejectStatus  regbus.Field
	FlashIdle     regbus.Field
	FlashIdlePoll uint32
}

// SleepDescriptor is the immutable per-chip power table.
type SleepDescriptor struct {
	Modes       PowerModeTable
	Constants   MachineConstants
	Regs        PowerRegs
	SlowClockHz uint32 // nominal LP clock
	FastClockHz uint32 // nominal HP wake clock
	DefaultPD   PowerDown

	// Bandgap reference trim on the analog control bus. OCodeForce makes
	// the analog block use OCode instead of its internal default.
	OCode      regi2c.Field
	OCodeForce regi2c.Field
}

// NominalCal returns the uncalibrated clock rates.
func (d *SleepDescriptor) NominalCal() ClockCal {
	return ClockCal{SlowHz: d.SlowClockHz, FastHz: d.FastClockHz}
}
