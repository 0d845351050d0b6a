package pm

import (
	"errors"
	"testing"

	"powerclock-go/chip"
	"powerclock-go/drivers/regi2c"
	"powerclock-go/drivers/sim"
	"powerclock-go/errcode"
	"powerclock-go/services/clk"
	"powerclock-go/trim"
	"powerclock-go/types"
	"powerclock-go/x/mathx"
)

type rig struct {
	chip *chip.Chip
	b    *sim.Board
	tree *clk.Tree
	seq  *Sequencer
}

func newRig(t *testing.T, name string) *rig {
	t.Helper()
	c, err := chip.Lookup(name)
	if err != nil {
		t.Fatal(err)
	}
	b := sim.NewBoard(c)
	return &rig{
		chip: c,
		b:    b,
		tree: clk.New(&c.Clock, b.Regs, regi2c.New(b.Ctl), clk.Config{}),
		seq:  New(&c.Sleep, b.Regs),
	}
}

func (r *rig) build(t *testing.T, mode types.HPMode, pd types.PowerDown) Params {
	t.Helper()
	x := r.tree.Lock()
	defer x.Unlock()
	p, err := r.seq.BuildParams(x, mode, 0, pd, 0, types.ClockCal{})
	if err != nil {
		t.Fatalf("BuildParams: %v", err)
	}
	return p
}

// ------------------------
// Budget
// ------------------------

func TestBudget_C6(t *testing.T) {
	c, _ := chip.Lookup("esp32c6")
	d := &c.Sleep
	pd := types.PdCPU | types.PdHPPeriph | types.PdXtal | types.PdRcFast

	cases := []struct {
		name   string
		pd     types.PowerDown
		flags  types.SleepFlags
		regdma bool
		adj    int32
		lpUs   uint32
		hpUs   uint32
		total  uint32
	}{
		{"xtal off", pd, 0, false, 0, 896, 405, 1301},
		{"xtal on", types.PdCPU, 0, false, 0, 654, 158, 812},
		{"xtal on regdma", types.PdCPU, 0, true, 0, 654, 330, 984},
		{"xtal on regdma top", types.PdCPU | types.PdTop, 0, true, 0, 654, 638, 1292},
		{"coex", pd, types.SleepModemCoex, false, 0, 896, 405, 1521},
		{"guard", pd, 0, false, 99, 896, 405, 1400},
		{"guard saturates", pd, 0, false, -5000, 896, 405, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := Budget(d, types.ClockCal{}, c.pd, c.flags, c.regdma, c.adj)
			if b.LpWaitUs != c.lpUs || b.HpWaitUs != c.hpUs || b.TotalGuardTimeUs != c.total {
				t.Fatalf("got lp=%d hp=%d total=%d", b.LpWaitUs, b.HpWaitUs, b.TotalGuardTimeUs)
			}
		})
	}

	b := Budget(d, types.ClockCal{}, pd, 0, false, 0)
	want := types.SleepBudget{
		LpWaitCycles:          122,
		HpWaitCycles:          7088,
		XtalStableWaitCycles:  34,
		PllStableWaitCycles:   18,
		ModemWakeupWaitCycles: 14910,
		RegdmaWaitCycles:      0,
		TotalGuardTimeUs:      1301,
		LpWaitUs:              896,
		HpWaitUs:              405,
	}
	if b != want {
		t.Fatalf("cycles:\n got  %+v\n want %+v", b, want)
	}
}

func TestBudget_NoModemMode(t *testing.T) {
	c, _ := chip.Lookup("esp32h2")
	if b := Budget(&c.Sleep, types.ClockCal{}, types.PdCPU, 0, false, 0); b.ModemWakeupWaitCycles != 0 {
		t.Fatalf("modem wait on a chip without modem mode: %d", b.ModemWakeupWaitCycles)
	}
}

func TestBudget_UsesCalibratedClocks(t *testing.T) {
	c, _ := chip.Lookup("esp32c6")
	d := &c.Sleep
	pd := d.DefaultPD
	nominal := Budget(d, types.ClockCal{}, pd, 0, false, 0)

	if got := Budget(d, d.NominalCal(), pd, 0, false, 0); got != nominal {
		t.Fatalf("explicit nominal calibration differs: %+v", got)
	}

	slow := Budget(d, types.ClockCal{SlowHz: 150_000}, pd, 0, false, 0)
	if slow.LpWaitCycles == nominal.LpWaitCycles {
		t.Fatalf("lp wait cycles ignore the slow clock: %d", slow.LpWaitCycles)
	}
	if want := mathx.UsToCycles(slow.LpWaitUs, 150_000); slow.LpWaitCycles != want {
		t.Fatalf("lp wait cycles %d want %d", slow.LpWaitCycles, want)
	}
	if slow.HpWaitCycles != nominal.HpWaitCycles {
		t.Fatalf("slow calibration moved hp cycles: %d", slow.HpWaitCycles)
	}

	fast := Budget(d, types.ClockCal{FastHz: 20_000_000}, pd, 0, false, 0)
	if fast.HpWaitCycles != 8100 {
		t.Fatalf("hp wait cycles %d want 8100", fast.HpWaitCycles)
	}
	if fast.LpWaitCycles != nominal.LpWaitCycles {
		t.Fatalf("fast calibration moved lp cycles: %d", fast.LpWaitCycles)
	}
}

func TestBuildParams_CalibrationReachesBudget(t *testing.T) {
	r := newRig(t, "esp32c6")
	cal := types.ClockCal{SlowHz: 120_000, FastHz: 16_000_000}
	x := r.tree.Lock()
	p, err := r.seq.BuildParams(x, types.HPSleep, 0, types.PdCPU, 0, cal)
	x.Unlock()
	if err != nil {
		t.Fatal(err)
	}
	if want := Budget(&r.chip.Sleep, cal, types.PdCPU, 0, false, 0); p.Budget != want {
		t.Fatalf("budget %+v want %+v", p.Budget, want)
	}
}

func TestBudget_MonotonicInXtalPowerDown(t *testing.T) {
	bases := []types.PowerDown{0, types.PdCPU, types.PdTop, types.PdCPU | types.PdHPPeriph | types.PdRcFast}
	for _, name := range chip.Names() {
		c, _ := chip.Lookup(name)
		for _, base := range bases {
			for _, flags := range []types.SleepFlags{0, types.SleepModemCoex} {
				for _, regdma := range []bool{false, true} {
					off := Budget(&c.Sleep, types.ClockCal{}, base&^types.PdXtal, flags, regdma, 0)
					on := Budget(&c.Sleep, types.ClockCal{}, base|types.PdXtal, flags, regdma, 0)
					if on.TotalGuardTimeUs < off.TotalGuardTimeUs || on.LpWaitUs < off.LpWaitUs || on.HpWaitUs < off.HpWaitUs {
						t.Fatalf("%s pd=%#x flags=%d regdma=%v: crystal down %+v shorter than up %+v", name, base, flags, regdma, on, off)
					}
				}
			}
		}
	}
}

// ------------------------
// BuildParams
// ------------------------

func TestBuildParams(t *testing.T) {
	r := newRig(t, "esp32c6")
	pd := r.chip.Sleep.DefaultPD
	p := r.build(t, types.HPSleep, pd)

	if p.HP.Power.DigPower != types.PdCPU|types.PdHPPeriph {
		t.Fatalf("dig power %#x", p.HP.Power.DigPower)
	}
	if p.HP.Power.XpdXtal || p.HP.Power.XpdRcFast {
		t.Fatalf("clocks left powered: %+v", p.HP.Power)
	}
	if p.HP.Clock.SysclkSel != 0 {
		t.Fatalf("sysclk sel %d on crystal", p.HP.Clock.SysclkSel)
	}
	if r.seq.State() != ParamsBuilt {
		t.Fatalf("state %s", r.seq.State())
	}
	if r.seq.LastBudget() != p.Budget || p.Budget != Budget(&r.chip.Sleep, types.ClockCal{}, pd, 0, false, 0) {
		t.Fatalf("budget mismatch: %+v", p.Budget)
	}
	if p.Retention[types.HPModem].BackupMode != 2 {
		t.Fatalf("modem retention %+v", p.Retention[types.HPModem])
	}
}

func TestBuildParams_FollowsCurrentClock(t *testing.T) {
	r := newRig(t, "esp32c6")
	cfg, err := r.tree.Resolve(160)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.tree.SetConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if p := r.build(t, types.HPSleep, types.PdCPU); p.HP.Clock.SysclkSel != 1 {
		t.Fatalf("sysclk sel %d on pll", p.HP.Clock.SysclkSel)
	}

	x := r.tree.Lock()
	_, err = r.seq.BuildParams(x, types.HPSleep, 0, types.PdXtal, 0, types.ClockCal{})
	x.Unlock()
	if !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("crystal power-down under pll: %v", err)
	}
}

func TestBuildParams_Rejects(t *testing.T) {
	cases := []struct {
		chip  string
		mode  types.HPMode
		flags types.SleepFlags
	}{
		{"esp32c6", types.HPActive, 0},
		{"esp32h2", types.HPModem, 0},
		{"esp32h2", types.HPSleep, types.SleepViaModem},
		{"esp32p4", types.HPModem, 0},
	}
	for _, c := range cases {
		r := newRig(t, c.chip)
		x := r.tree.Lock()
		_, err := r.seq.BuildParams(x, c.mode, c.flags, types.PdCPU, 0, types.ClockCal{})
		x.Unlock()
		if errcode.Of(err) != errcode.InvalidParams {
			t.Fatalf("%s mode=%s flags=%d: %v", c.chip, c.mode, c.flags, err)
		}
		if r.seq.State() != Idle {
			t.Fatalf("%s: state %s after reject", c.chip, r.seq.State())
		}
	}
}

// ------------------------
// Program
// ------------------------

func TestProgram_WritesBlocksAndWaits(t *testing.T) {
	r := newRig(t, "esp32c6")
	regs := &r.chip.Sleep.Regs
	p := r.build(t, types.HPSleep, r.chip.Sleep.DefaultPD)

	x := r.tree.Lock()
	err := r.seq.Program(x, p)
	x.Unlock()
	if err != nil {
		t.Fatal(err)
	}
	if r.seq.State() != Armed {
		t.Fatalf("state %s", r.seq.State())
	}

	hp := &regs.HP[types.HPSleep]
	if got := r.b.Field(hp.DigPower); got != uint32(types.PdCPU|types.PdHPPeriph) {
		t.Fatalf("dig power field %#x", got)
	}
	if r.b.Field(hp.XpdXtal) != 0 || r.b.Field(hp.Dbias) != 12 || r.b.Field(hp.DbgAtten) != 0xC {
		t.Fatal("hp sleep block not programmed")
	}
	if got := r.b.Field(regs.LP[types.LPSleep].DrvB); got != 0x1F0 {
		t.Fatalf("lp sleep drv_b %#x", got)
	}
	if got := r.b.Field(regs.LpWaitCycles); got != p.Budget.LpWaitCycles {
		t.Fatalf("lp wait %d", got)
	}
	if got := r.b.Field(regs.HpWaitCycles); got != p.Budget.HpWaitCycles {
		t.Fatalf("hp wait %d", got)
	}
	if got := r.b.Field(regs.ModemWakeupWait); got != 14910 {
		t.Fatalf("modem wait %d", got)
	}
	for _, m := range []types.HPMode{types.HPActive, types.HPModem, types.HPSleep} {
		if n := len(r.b.Regs.Writes(regs.HP[m].BackupEn.Addr)); n != 0 {
			t.Fatalf("retention of %s written without backup: %d writes", m, n)
		}
	}
}

func TestProgram_RetentionWithBackup(t *testing.T) {
	r := newRig(t, "esp32c6")
	regs := &r.chip.Sleep.Regs

	x := r.tree.Lock()
	r.seq.EnableRegdmaBackup(x)
	p, err := r.seq.BuildParams(x, types.HPSleep, 0, types.PdCPU, 0, types.ClockCal{})
	if err == nil {
		err = r.seq.Program(x, p)
	}
	x.Unlock()
	if err != nil {
		t.Fatal(err)
	}

	for _, m := range []types.HPMode{types.HPActive, types.HPModem, types.HPSleep} {
		if r.b.Field(regs.HP[m].BackupEn) != 1 {
			t.Fatalf("%s backup not enabled", m)
		}
	}
	if got := r.b.Field(regs.HP[types.HPModem].BackupMode); got != 2 {
		t.Fatalf("modem backup mode %d", got)
	}
	if got := r.b.Field(regs.RegdmaWait); got != p.Budget.RegdmaWaitCycles || got == 0 {
		t.Fatalf("regdma wait %d", got)
	}
}

func TestProgram_RequiresParams(t *testing.T) {
	r := newRig(t, "esp32c6")
	x := r.tree.Lock()
	defer x.Unlock()
	if err := r.seq.Program(x, Params{Mode: types.HPSleep}); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("program from idle: %v", err)
	}
}

func TestRegdmaBackup_WritesOnlyOnChange(t *testing.T) {
	r := newRig(t, "esp32c6")
	addr := r.chip.Sleep.Regs.RegdmaEnable.Addr
	x := r.tree.Lock()
	defer x.Unlock()

	r.seq.EnableRegdmaBackup(x)
	r.seq.EnableRegdmaBackup(x)
	if n := len(r.b.Regs.Writes(addr)); n != 1 {
		t.Fatalf("enable twice wrote %d times", n)
	}
	r.seq.DisableRegdmaBackup(x)
	r.seq.DisableRegdmaBackup(x)
	if n := len(r.b.Regs.Writes(addr)); n != 2 {
		t.Fatalf("disable twice brought total to %d writes", n)
	}
	if r.seq.RegdmaEnabled() {
		t.Fatal("still enabled")
	}
}

// ------------------------
// Enter
// ------------------------

func (r *rig) arm(t *testing.T) {
	t.Helper()
	p := r.build(t, types.HPSleep, types.PdCPU)
	x := r.tree.Lock()
	defer x.Unlock()
	if err := r.seq.Program(x, p); err != nil {
		t.Fatal(err)
	}
}

func TestEnter_ImmediateReject(t *testing.T) {
	r := newRig(t, "esp32c6")
	regs := &r.chip.Sleep.Regs
	r.b.SleepOutcome(sim.Reject)
	r.arm(t)
	r.b.Regs.ResetTrace()

	x := r.tree.Lock()
	res, err := r.seq.Enter(x, 0x4, 0x1, false)
	x.Unlock()
	if err != nil || res != types.SleepRejected {
		t.Fatalf("got %s, %v", res, err)
	}
	if n := r.b.Regs.Reads(regs.RejectStatus.Addr); n != 1 {
		t.Fatalf("status polled %d times, want 1", n)
	}
	if n := len(r.b.Regs.Writes(regs.SleepStart.Addr)); n != 1 {
		t.Fatalf("sleep bit written %d times", n)
	}
	if got := r.b.Field(regs.IntClear); got != chip.IntWakeup|chip.IntReject {
		t.Fatalf("int clear %#x", got)
	}
	if r.seq.State() != WokenOrRejected {
		t.Fatalf("state %s", r.seq.State())
	}
}

func TestEnter_Woken(t *testing.T) {
	r := newRig(t, "esp32h2")
	regs := &r.chip.Sleep.Regs
	r.arm(t)

	x := r.tree.Lock()
	res, err := r.seq.Enter(x, 0x10, 0, true)
	r.seq.Reset(x)
	x.Unlock()
	if err != nil || res != types.SleepWoken {
		t.Fatalf("got %s, %v", res, err)
	}
	if r.b.Field(regs.WakeupEnable) != 0x10 || r.b.Field(regs.WakeType) != 1 {
		t.Fatal("wake sources not armed")
	}
	if r.seq.State() != Idle {
		t.Fatalf("state %s", r.seq.State())
	}
}

func TestEnter_FlashIdleWaitIsBounded(t *testing.T) {
	r := newRig(t, "esp32c6")
	regs := &r.chip.Sleep.Regs
	r.b.Regs.Set(regs.FlashIdle.Addr, 0)
	r.arm(t)

	x := r.tree.Lock()
	res, err := r.seq.Enter(x, 1, 0, false)
	x.Unlock()
	if err != nil || res != types.SleepWoken {
		t.Fatalf("got %s, %v", res, err)
	}
	if n := r.b.Regs.Reads(regs.FlashIdle.Addr); n != int(regs.FlashIdlePoll) {
		t.Fatalf("flash idle polled %d times", n)
	}
}

func TestEnter_RequiresArmed(t *testing.T) {
	r := newRig(t, "esp32c6")
	x := r.tree.Lock()
	defer x.Unlock()
	res, err := r.seq.Enter(x, 1, 0, false)
	if errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("enter from idle: %v", err)
	}
	if res != types.SleepNone {
		t.Fatalf("failed entry reported %s", res)
	}
}

// ------------------------
// Trim
// ------------------------

func TestApplyTrim(t *testing.T) {
	c, _ := chip.Lookup("esp32c6")
	got := ApplyTrim(c.Sleep.Modes, trim.Dbias{HPActive: 3, HPSleep: -40, LPActive: 10})
	if got.HP[types.HPActive].Analog.Dbias != 28 {
		t.Fatalf("hp active %d", got.HP[types.HPActive].Analog.Dbias)
	}
	if got.HP[types.HPSleep].Analog.Dbias != 0 {
		t.Fatalf("hp sleep %d", got.HP[types.HPSleep].Analog.Dbias)
	}
	if got.LP[types.LPActive].Analog.Dbias != 31 {
		t.Fatalf("lp active %d", got.LP[types.LPActive].Analog.Dbias)
	}
	if c.Sleep.Modes.HP[types.HPActive].Analog.Dbias != 25 {
		t.Fatal("defaults mutated")
	}

	h2, _ := chip.Lookup("esp32h2")
	if got := ApplyTrim(h2.Sleep.Modes, trim.Dbias{HPModem: 5}); got.HP[types.HPModem] != h2.Sleep.Modes.HP[types.HPModem] {
		t.Fatal("absent modem mode trimmed")
	}
}
