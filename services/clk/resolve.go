package clk

import (
	"powerclock-go/errcode"
	"powerclock-go/types"
	"powerclock-go/x/mathx"

	"golang.org/x/exp/slices"
)

// Resolve maps a requested CPU frequency onto a concrete config. The
// crystal wins whenever it divides evenly; otherwise a fixed PLL target
// is used. It never touches hardware.
func (t *Tree) Resolve(freqMHz uint32) (types.ClockConfig, error) {
	if freqMHz == 0 {
		return types.ClockConfig{}, errcode.New(errcode.UnsupportedFrequency, "clk.resolve", "zero")
	}
	if freqMHz <= t.xtal && t.xtal%freqMHz == 0 && t.xtal/freqMHz <= t.maxXtalDiv() {
		return t.crystalConfig(t.xtal / freqMHz), nil
	}
	for _, pt := range t.d.PllTargets {
		if pt.FreqMHz != freqMHz || !t.pllReachable(pt) {
			continue
		}
		return types.ClockConfig{
			Source:        pt.Source,
			SourceFreqMHz: pt.SourceFreqMHz,
			PllFreqMHz:    pt.PllFreqMHz,
			Divider:       pt.Divider,
			FreqMHz:       pt.FreqMHz,
			BusDiv:        t.BusDividers(pt.FreqMHz),
		}, nil
	}
	return types.ClockConfig{}, errcode.New(errcode.UnsupportedFrequency, "clk.resolve", "no source")
}

// LegalFreqs lists every frequency Resolve accepts, highest first.
func (t *Tree) LegalFreqs() []uint32 {
	var out []uint32
	for d := uint32(1); d <= t.xtal && d <= t.maxXtalDiv(); d++ {
		if t.xtal%d == 0 {
			out = append(out, t.xtal/d)
		}
	}
	for _, pt := range t.d.PllTargets {
		if t.pllReachable(pt) && !slices.Contains(out, pt.FreqMHz) {
			out = append(out, pt.FreqMHz)
		}
	}
	slices.Sort(out)
	slices.Reverse(out)
	return out
}

// BusDividers returns, innermost bus first, the smallest divider keeping
// each bus at or below its maximum when the CPU runs at cpuMHz.
func (t *Tree) BusDividers(cpuMHz uint32) []uint32 {
	out := make([]uint32, len(t.d.Buses))
	up := cpuMHz
	for i, b := range t.d.Buses {
		div := mathx.Max(1, mathx.CeilDiv(up, b.MaxMHz))
		out[i] = div
		up = mathx.CeilDiv(up, div)
	}
	return out
}

func (t *Tree) crystalConfig(div uint32) types.ClockConfig {
	return types.ClockConfig{
		Source:        types.Crystal(),
		SourceFreqMHz: t.xtal,
		Divider:       types.Div(div),
		FreqMHz:       t.xtal / div,
		BusDiv:        t.BusDividers(t.xtal / div),
	}
}

func (t *Tree) fastRcConfig() types.ClockConfig {
	mhz := mathx.CeilDiv(t.d.FastRcKHz, 1000)
	return types.ClockConfig{
		Source:        types.FastRc(),
		SourceFreqMHz: mhz,
		Divider:       types.Div(1),
		FreqMHz:       mhz,
		BusDiv:        t.BusDividers(mhz),
	}
}

// sourceMHz is the fixed frequency of a source, 0 when it depends on the
// PLL setting.
func (t *Tree) sourceMHz(sd types.SourceDesc) uint32 {
	switch sd.Source.Kind {
	case types.SrcCrystal:
		return t.xtal
	case types.SrcFastRc:
		return mathx.CeilDiv(t.d.FastRcKHz, 1000)
	}
	return sd.FreqMHz
}

func (t *Tree) maxXtalDiv() uint32 {
	if t.d.MaxXtalDiv == 0 {
		return t.xtal
	}
	return t.d.MaxXtalDiv
}

// pllReachable reports whether the target's PLL can be locked from the
// crystal actually fitted.
func (t *Tree) pllReachable(pt types.PllTarget) bool {
	p, ok := t.d.Pll(pt.Source.Pll)
	if !ok {
		return false
	}
	for _, e := range p.Dividers {
		if e.XtalMHz == t.xtal && e.FreqMHz == pt.PllFreqMHz {
			return true
		}
	}
	return false
}

// validate rejects configs the hardware could not run.
func (t *Tree) validate(c types.ClockConfig) error {
	const op = "clk.set_config"
	sd, ok := t.d.Source(c.Source)
	if !ok {
		return errcode.New(errcode.InvalidParams, op, "unknown source "+c.Source.String())
	}
	if want := t.sourceMHz(sd); want != 0 && want != c.SourceFreqMHz {
		return errcode.New(errcode.InvalidParams, op, "source frequency")
	}
	if c.Divider.Int == 0 || (!c.Divider.IsInteger() && (!t.d.Fractional || c.Divider.Den == 0)) {
		return errcode.New(errcode.InvalidParams, op, "bad divider")
	}
	if len(c.BusDiv) != len(t.d.Buses) {
		return errcode.New(errcode.InvalidParams, op, "bus divider count")
	}
	for i, d := range c.BusDiv {
		if d == 0 || d-1 > t.d.Buses[i].Div.Max() {
			return errcode.New(errcode.InvalidParams, op, "bus divider "+t.d.Buses[i].Name)
		}
	}
	if c.FreqMHz == 0 || c.Divider.Apply(c.SourceFreqMHz) != c.FreqMHz || c.FreqMHz > t.d.CPUMaxMHz {
		return errcode.New(errcode.UnsupportedFrequency, op, "inconsistent frequency")
	}
	if c.Source.IsPll() {
		if _, ok := t.d.Pll(c.Source.Pll); !ok {
			return errcode.New(errcode.UnknownPll, op, c.Source.String())
		}
		if c.PllFreqMHz == 0 {
			return errcode.New(errcode.InvalidParams, op, "pll frequency")
		}
	}
	return nil
}
