// Package clk owns the CPU clock tree: source selection, legal frequency
// resolution, PLL lifetime and the ordered register writes that move the
// CPU between configs without overclocking any bus on the way.
package clk

import (
	"powerclock-go/drivers/regbus"
	"powerclock-go/drivers/regi2c"
	"powerclock-go/errcode"
	"powerclock-go/types"
	"powerclock-go/x/critsec"
	"powerclock-go/x/mathx"

	"golang.org/x/exp/slices"
)

type Config struct {
	Hook    Hook
	Section *critsec.Section // shared with the sleep sequencer; nil allocates one
	XtalMHz uint32           // fitted crystal; 0 uses the descriptor value
}

// Tree is the single owner of the clock hardware. Mutating calls run
// inside the critical section.
type Tree struct {
	d    *types.ClockDescriptor
	regs regbus.Bus
	sec  *critsec.Section
	hook Hook
	xtal uint32
	plls []*Pll

	cur      types.ClockConfig
	ticksKHz uint32
}

// New assumes the chip booted on the crystal at its native frequency with
// all bus dividers at reset value.
func New(d *types.ClockDescriptor, regs regbus.Bus, ctl *regi2c.Bus, cfg Config) *Tree {
	t := &Tree{
		d:    d,
		regs: regs,
		sec:  cfg.Section,
		hook: cfg.Hook,
		xtal: cfg.XtalMHz,
	}
	if t.sec == nil {
		t.sec = critsec.New()
	}
	if t.hook == nil {
		t.hook = nopHook{}
	}
	if t.xtal == 0 {
		t.xtal = d.XtalMHz
	}
	for i := range d.Plls {
		t.plls = append(t.plls, newPll(&d.Plls[i], regs, ctl))
	}
	t.cur = t.crystalConfig(1)
	t.ticksKHz = t.xtal * 1000
	return t
}

func (t *Tree) Descriptor() *types.ClockDescriptor { return t.d }
func (t *Tree) XtalMHz() uint32                    { return t.xtal }

// ------------------------
// Exclusive access
// ------------------------

// Txn is proof that the caller holds the critical section. Callers that
// need several steps to happen atomically (the sleep path) use it.
type Txn struct {
	t *Tree
}

// Lock enters the critical section. Release it with Unlock.
func (t *Tree) Lock() *Txn {
	t.sec.Lock()
	return &Txn{t: t}
}

func (x *Txn) Unlock() {
	t := x.t
	x.t = nil
	t.sec.Unlock()
}

func (x *Txn) Current() types.ClockConfig          { return x.t.current() }
func (x *Txn) SetConfig(c types.ClockConfig) error { return x.t.setConfig(c) }
func (x *Txn) SetFastRc() error                    { return x.t.setConfig(x.t.fastRcConfig()) }
func (x *Txn) SetCrystal() error                   { return x.t.setConfig(x.t.crystalConfig(1)) }

// SourceSel returns the CPU mux value of the current source.
func (x *Txn) SourceSel() uint32 {
	sd, _ := x.t.d.Source(x.t.cur.Source)
	return sd.Sel
}

// ------------------------
// Locked convenience API
// ------------------------

// SetConfig switches the CPU to c. On error the tree reflects what was
// actually applied; after a calibration timeout the CPU runs from the
// crystal.
func (t *Tree) SetConfig(c types.ClockConfig) error {
	x := t.Lock()
	defer x.Unlock()
	return x.SetConfig(c)
}

// SetFastRc moves the CPU onto the internal RC oscillator.
func (t *Tree) SetFastRc() error {
	x := t.Lock()
	defer x.Unlock()
	return x.SetFastRc()
}

func (t *Tree) Current() types.ClockConfig {
	x := t.Lock()
	defer x.Unlock()
	return x.Current()
}

// TicksPerUs is the cycle-counter rate at the current CPU frequency,
// rounded down. Delay loops built on it never run short.
func (t *Tree) TicksPerUs() uint32 {
	x := t.Lock()
	defer x.Unlock()
	return t.ticksKHz / 1000
}

// TicksPerMs is the exact cycle-counter rate, for sources that are not a
// whole number of MHz.
func (t *Tree) TicksPerMs() uint32 {
	x := t.Lock()
	defer x.Unlock()
	return t.ticksKHz
}

func (t *Tree) PllAddConsumer(id types.PllID) error {
	x := t.Lock()
	defer x.Unlock()
	p := t.pll(id)
	if p == nil {
		return errcode.New(errcode.UnknownPll, "clk.pll_add_consumer", "")
	}
	p.addConsumer()
	return nil
}

func (t *Tree) PllRemoveConsumer(id types.PllID) error {
	x := t.Lock()
	defer x.Unlock()
	p := t.pll(id)
	if p == nil {
		return errcode.New(errcode.UnknownPll, "clk.pll_remove_consumer", "")
	}
	return p.removeConsumer()
}

func (t *Tree) PllState(id types.PllID) (types.PllState, bool) {
	x := t.Lock()
	defer x.Unlock()
	p := t.pll(id)
	if p == nil {
		return types.PllState{}, false
	}
	return p.State(), true
}

// ------------------------
// Switching
// ------------------------

func (t *Tree) current() types.ClockConfig {
	c := t.cur
	c.BusDiv = slices.Clone(t.cur.BusDiv)
	return c
}

func (t *Tree) pll(id types.PllID) *Pll {
	for _, p := range t.plls {
		if p.desc.ID == id {
			return p
		}
	}
	return nil
}

func (t *Tree) setConfig(target types.ClockConfig) error {
	if err := t.validate(target); err != nil {
		return err
	}
	from := t.current()
	if from.Same(target) {
		return nil
	}
	t.hook.BeforeSwitch(from, target)
	err := t.switchTo(target)
	if err == nil || !t.cur.Same(from) {
		t.hook.AfterSwitch(from, t.current())
	}
	return err
}

func sameClock(a, b types.ClockSource) bool {
	return a.Kind == b.Kind && (a.Kind != types.SrcPll || a.Pll == b.Pll)
}

func (t *Tree) switchTo(target types.ClockConfig) error {
	cur := t.cur
	var tp *Pll
	if target.Source.IsPll() {
		tp = t.pll(target.Source.Pll)
	}
	reconf := tp != nil && tp.st.ConfiguredFreqMHz != target.PllFreqMHz

	// Never retune or swap a clock the CPU is running from.
	if cur.Source.Kind != types.SrcCrystal && (!sameClock(cur.Source, target.Source) || reconf) {
		t.apply(t.crystalConfig(1))
	}

	if cur.Source.IsPll() && (tp == nil || cur.Source.Pll != target.Source.Pll) {
		if old := t.pll(cur.Source.Pll); old != nil && old.st.Consumers == 0 {
			if err := old.Disable(); err != nil {
				return err
			}
		}
	}

	if tp != nil {
		tp.Enable()
		if reconf {
			if err := tp.ConfigureAndCalibrate(t.xtal, target.PllFreqMHz); err != nil {
				return err
			}
		}
	}

	t.apply(target)
	return nil
}

// apply programs one transition. Dividers that grow are written before
// the root (outermost first), dividers that shrink after it (innermost
// first), so every bus stays within its maximum at each write.
func (t *Tree) apply(to types.ClockConfig) {
	from := t.cur
	if from.Same(to) {
		return
	}
	buses := t.d.Buses
	for i := len(buses) - 1; i >= 0; i-- {
		if to.BusDiv[i] > from.BusDiv[i] {
			regbus.WriteField(t.regs, buses[i].Div, to.BusDiv[i]-1)
		}
	}
	t.writeRoot(from, to)
	for i := range buses {
		if to.BusDiv[i] < from.BusDiv[i] {
			regbus.WriteField(t.regs, buses[i].Div, to.BusDiv[i]-1)
		}
	}

	fromKHz, toKHz := t.freqKHz(from), t.freqKHz(to)
	t.rescaleCounter(fromKHz, toKHz)
	t.cur = to
	t.cur.BusDiv = slices.Clone(to.BusDiv)
	t.ticksKHz = toKHz
}

// writeRoot changes the CPU source and divider. Of the two possible
// intermediate states the slower one is taken.
func (t *Tree) writeRoot(from, to types.ClockConfig) {
	if from.Source == to.Source {
		t.writeRootDiv(from.Divider, to.Divider)
		return
	}
	sd, _ := t.d.Source(to.Source)
	newFirst := uint64(to.SourceFreqMHz)*to.Divider.Scaled() < uint64(from.SourceFreqMHz)*from.Divider.Scaled()
	if newFirst {
		regbus.WriteField(t.regs, t.d.Regs.SourceSel, sd.Sel)
		t.writeRootDiv(from.Divider, to.Divider)
		return
	}
	t.writeRootDiv(from.Divider, to.Divider)
	regbus.WriteField(t.regs, t.d.Regs.SourceSel, sd.Sel)
}

// Root divider fields, in the order they may be written.
type divStep uint8

const (
	stepInt divStep = iota
	stepNum
	stepDen
)

var divOrders = [...][3]divStep{
	{stepInt, stepNum, stepDen},
	{stepNum, stepDen, stepInt},
	{stepDen, stepNum, stepInt},
	{stepInt, stepDen, stepNum},
	{stepNum, stepInt, stepDen},
	{stepDen, stepInt, stepNum},
}

// writeRootDiv moves the root divider one field at a time. It takes the
// first write order whose intermediate dividers never fall below the
// smaller endpoint.
func (t *Tree) writeRootDiv(old, nw types.Fraction) {
	r := &t.d.Regs
	order := divOrder(old, nw)
	for _, st := range order {
		switch st {
		case stepInt:
			regbus.WriteField(t.regs, r.RootDiv, nw.Int-1)
		case stepNum:
			regbus.WriteField(t.regs, r.RootDivNum, nw.Num)
		case stepDen:
			regbus.WriteField(t.regs, r.RootDivDen, nw.Den)
		}
	}
}

func divOrder(old, nw types.Fraction) [3]divStep {
	floor := min(old.Scaled(), nw.Scaled())
	start := 0
	if nw.Scaled() <= old.Scaled() {
		start = 1
	}
	for i := range divOrders {
		o := divOrders[(start+i)%len(divOrders)]
		if divOrderSafe(old, nw, o, floor) {
			return o
		}
	}
	return divOrders[start]
}

func divOrderSafe(old, nw types.Fraction, o [3]divStep, floor uint64) bool {
	cur := old
	for _, st := range o {
		switch st {
		case stepInt:
			cur.Int = nw.Int
		case stepNum:
			cur.Num = nw.Num
		case stepDen:
			cur.Den = nw.Den
		}
		if cur.Scaled() < floor {
			return false
		}
	}
	return true
}

// freqKHz is the real CPU rate of c. FreqMHz of an RC config is rounded
// up for bus limits, so the RC rate comes from the descriptor.
func (t *Tree) freqKHz(c types.ClockConfig) uint32 {
	if c.Source.Kind == types.SrcFastRc {
		return t.d.FastRcKHz / mathx.Max(1, c.Divider.Int)
	}
	return c.FreqMHz * 1000
}

// rescaleCounter keeps the cycle counter continuous in wall time:
// new = old * fNew / fOld.
func (t *Tree) rescaleCounter(fOld, fNew uint32) {
	f := t.d.Regs.CycleCounter
	if fOld == fNew || fOld == 0 || !f.Present() {
		return
	}
	old := regbus.ReadField(t.regs, f)
	regbus.WriteField(t.regs, f, uint32(uint64(old)*uint64(fNew)/uint64(fOld)))
}
