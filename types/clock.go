package types

import (
	"powerclock-go/drivers/regbus"
	"powerclock-go/drivers/regi2c"
)

// ------------------------
// Clock sources
// ------------------------

type SourceKind uint8

const (
	SrcCrystal SourceKind = iota
	SrcPll
	SrcFastRc
)

type PllID uint8

// ClockSource is a tagged source. Taps of one physical PLL are distinct
// sources that share the PLL's state.
type ClockSource struct {
	Kind SourceKind
	Pll  PllID
	Tap  uint8
}

func Crystal() ClockSource { return ClockSource{Kind: SrcCrystal} }
func FastRc() ClockSource  { return ClockSource{Kind: SrcFastRc} }

func PllTap(id PllID, tap uint8) ClockSource {
	return ClockSource{Kind: SrcPll, Pll: id, Tap: tap}
}

func (s ClockSource) IsPll() bool { return s.Kind == SrcPll }

func (s ClockSource) String() string {
	switch s.Kind {
	case SrcCrystal:
		return "xtal"
	case SrcFastRc:
		return "rc_fast"
	case SrcPll:
		return "pll" + string('0'+rune(s.Pll)) + "." + string('0'+rune(s.Tap))
	}
	return "unknown"
}

// ------------------------
// Dividers
// ------------------------

// Fraction is Int + Num/Den. Num == 0 is a plain integer divider.
type Fraction struct {
	Int uint32
	Num uint32
	Den uint32
}

// Div returns the integer divider n.
func Div(n uint32) Fraction { return Fraction{Int: n} }

func (f Fraction) IsInteger() bool { return f.Num == 0 }

// Apply divides srcMHz by f and rounds to the nearest MHz.
func (f Fraction) Apply(srcMHz uint32) uint32 {
	if f.Num == 0 || f.Den == 0 {
		if f.Int == 0 {
			return 0
		}
		return (srcMHz + f.Int/2) / f.Int
	}
	den := uint64(f.Int)*uint64(f.Den) + uint64(f.Num)
	return uint32((uint64(srcMHz)*uint64(f.Den) + den/2) / den)
}

// Scaled returns the divider as a fixed-point value with 8 fractional
// bits, so fractional and integer dividers compare directly.
func (f Fraction) Scaled() uint64 {
	v := uint64(f.Int) << 8
	if f.Num != 0 && f.Den != 0 {
		v += (uint64(f.Num) << 8) / uint64(f.Den)
	}
	return v
}

// ------------------------
// Configs
// ------------------------

// ClockConfig is one concrete CPU clock setting.
// FreqMHz == Divider.Apply(SourceFreqMHz). BusDiv[i] divides bus i's
// upstream clock (the CPU for i == 0).
type ClockConfig struct {
	Source        ClockSource
	SourceFreqMHz uint32
	PllFreqMHz    uint32 // physical PLL frequency; 0 unless Source is a PLL
	Divider       Fraction
	FreqMHz       uint32
	BusDiv        []uint32
}

// Same reports whether two configs program identical hardware.
func (c ClockConfig) Same(o ClockConfig) bool {
	if c.Source != o.Source || c.SourceFreqMHz != o.SourceFreqMHz ||
		c.PllFreqMHz != o.PllFreqMHz || c.Divider != o.Divider ||
		c.FreqMHz != o.FreqMHz || len(c.BusDiv) != len(o.BusDiv) {
		return false
	}
	for i := range c.BusDiv {
		if c.BusDiv[i] != o.BusDiv[i] {
			return false
		}
	}
	return true
}

// PllState is the shared bookkeeping of one physical PLL.
type PllState struct {
	Enabled           bool
	ConfiguredFreqMHz uint32 // 0 = not configured
	Consumers         uint32
}

// ------------------------
// Descriptor
// ------------------------

// BusDesc is one stage of the bus divider chain, ordered from the CPU
// outwards (innermost first).
type BusDesc struct {
	Name   string
	MaxMHz uint32
	Div    regbus.Field // holds divider-1
}

// SourceDesc maps a logical source onto the CPU source mux.
type SourceDesc struct {
	Source  ClockSource
	Sel     uint32
	FreqMHz uint32 // fixed tap frequency; 0 for crystal (trim-defined)
}

// PllTarget is one fixed PLL-derived CPU frequency.
type PllTarget struct {
	FreqMHz       uint32
	Source        ClockSource
	PllFreqMHz    uint32
	SourceFreqMHz uint32
	Divider       Fraction
}

// PllDivEntry holds the digital divider writes for one xtal/PLL pair.
type PllDivEntry struct {
	XtalMHz uint32
	FreqMHz uint32
	Writes  []regi2c.Write
}

// PllDesc describes one physical PLL.
type PllDesc struct {
	ID       PllID
	Name     string
	FreqsMHz []uint32
	Power    regbus.Field // 1 = powered
	Dividers []PllDivEntry
	CalStart regi2c.Field
	CalStop  regi2c.Field
	CalDone  regi2c.Field
	CalPolls uint32
}

// ClockRegs locates the CPU clock controls.
type ClockRegs struct {
	SourceSel    regbus.Field
	RootDiv      regbus.Field // holds Int-1
	RootDivNum   regbus.Field // absent on integer-only chips
	RootDivDen   regbus.Field
	CycleCounter regbus.Field
}

// ClockDescriptor is the immutable per-chip clock table.
type ClockDescriptor struct {
	Name       string
	XtalMHz    uint32
	FastRcKHz  uint32
	CPUMaxMHz  uint32
	MaxXtalDiv uint32
	Fractional bool
	Buses      []BusDesc
	Sources    []SourceDesc
	Plls       []PllDesc
	PllTargets []PllTarget
	Regs       ClockRegs
}

// Source returns the mux entry for s.
func (d *ClockDescriptor) Source(s ClockSource) (SourceDesc, bool) {
	for _, sd := range d.Sources {
		if sd.Source == s {
			return sd, true
		}
	}
	return SourceDesc{}, false
}

// Pll returns the descriptor of the physical PLL id.
func (d *ClockDescriptor) Pll(id PllID) (*PllDesc, bool) {
	for i := range d.Plls {
		if d.Plls[i].ID == id {
			return &d.Plls[i], true
		}
	}
	return nil, false
}
