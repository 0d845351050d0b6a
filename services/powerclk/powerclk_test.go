package powerclk

import (
	"errors"
	"testing"

	"powerclock-go/bus"
	"powerclock-go/chip"
	"powerclock-go/drivers/sim"
	"powerclock-go/errcode"
	"powerclock-go/services/pm"
	"powerclock-go/trim"
	"powerclock-go/types"
	"powerclock-go/x/mathx"
)

func newSystem(t *testing.T, name string, ts trim.Source) (*System, *sim.Board, *bus.Bus) {
	t.Helper()
	c, err := chip.Lookup(name)
	if err != nil {
		t.Fatal(err)
	}
	b := sim.NewBoard(c)
	bb := bus.NewBus(4)
	s, err := New(c, b.Regs, b.Ctl, ts, Config{Bus: bb})
	if err != nil {
		t.Fatal(err)
	}
	return s, b, bb
}

func TestNew_WritesBandgapOCode(t *testing.T) {
	for _, name := range chip.Names() {
		s, b, _ := newSystem(t, name, trim.Static{Ocode: 90})
		d := &s.Chip().Sleep
		if got := b.Ctl.Reg(d.OCode.Block, d.OCode.HostID, d.OCode.Reg); got != 90 {
			t.Fatalf("%s: ocode reg %d want 90", name, got)
		}
		f := d.OCodeForce
		if got := b.Ctl.Reg(f.Block, f.HostID, f.Reg) >> f.Lsb & 1; got != 1 {
			t.Fatalf("%s: ocode force bit not set", name)
		}
	}

	_, b, _ := newSystem(t, "esp32c6", nil)
	if n := b.Ctl.Transactions(); n != 0 {
		t.Fatalf("unprogrammed efuse caused %d control-bus transactions", n)
	}
}

func TestNew_OCodeWriteFailure(t *testing.T) {
	c, _ := chip.Lookup("esp32c6")
	b := sim.NewBoard(c)
	b.Ctl.Fail = errors.New("nack")
	if _, err := New(c, b.Regs, b.Ctl, trim.Static{Ocode: 90}, Config{}); err == nil {
		t.Fatal("expected control-bus error")
	}
}

func TestSetCPUFrequency(t *testing.T) {
	s, _, bb := newSystem(t, "esp32c6", nil)

	if err := s.SetCPUFrequency(160); err != nil {
		t.Fatal(err)
	}
	if s.CPUFrequency() != 160 || s.Tree().TicksPerUs() != 160 {
		t.Fatalf("freq %d", s.CPUFrequency())
	}
	m, ok := bb.Retained(TopicCPUFreq)
	if !ok {
		t.Fatal("no retained frequency")
	}
	if ev := m.Payload.(FreqEvent); ev.MHz != 160 || ev.Source != "pll0.0" || ev.PrevMHz != 40 {
		t.Fatalf("event %+v", ev)
	}

	if err := s.SetCPUFrequency(7); !errors.Is(err, errcode.UnsupportedFrequency) {
		t.Fatalf("7 MHz: %v", err)
	}
	if s.CPUFrequency() != 160 {
		t.Fatalf("rejected request changed freq to %d", s.CPUFrequency())
	}
}

func TestMustSetCPUFrequencyPanics(t *testing.T) {
	s, _, _ := newSystem(t, "esp32h2", nil)
	defer func() {
		if recover() == nil {
			t.Fatal("no panic")
		}
	}()
	s.MustSetCPUFrequency(100)
}

func TestEnterSleep_RestoresClock(t *testing.T) {
	s, b, bb := newSystem(t, "esp32c6", nil)
	regs := &s.Chip().Sleep.Regs
	if err := s.SetCPUFrequency(160); err != nil {
		t.Fatal(err)
	}

	res, err := s.EnterSleep(types.HPSleep, 0x1, 0, false)
	if err != nil || res != types.SleepWoken {
		t.Fatalf("got %s, %v", res, err)
	}
	if s.CPUFrequency() != 160 {
		t.Fatalf("clock not restored: %d", s.CPUFrequency())
	}
	// Parameters were built while running from the crystal.
	if got := b.Field(regs.HP[types.HPSleep].SysclkSel); got != 0 {
		t.Fatalf("sleep sysclk sel %d", got)
	}
	if s.Sequencer().State() != pm.Idle {
		t.Fatalf("state %s", s.Sequencer().State())
	}
	m, ok := bb.Retained(TopicSleepResult)
	if !ok || m.Payload.(SleepEvent).Result != "woken" {
		t.Fatalf("sleep event %+v", m)
	}
}

func TestEnterSleep_RejectIsNotAnError(t *testing.T) {
	s, b, _ := newSystem(t, "esp32p4", nil)
	b.SleepOutcome(sim.Reject)
	if err := s.SetCPUFrequency(240); err != nil {
		t.Fatal(err)
	}
	res, err := s.EnterSleep(types.HPSleep, 0x1, 0x1, false)
	if err != nil || res != types.SleepRejected {
		t.Fatalf("got %s, %v", res, err)
	}
	if s.CPUFrequency() != 240 {
		t.Fatalf("clock not restored: %d", s.CPUFrequency())
	}
}

func TestEnterSleepWith_Regdma(t *testing.T) {
	s, b, _ := newSystem(t, "esp32c6", nil)
	en := s.Chip().Sleep.Regs.RegdmaEnable

	req := SleepRequest{Mode: types.HPSleep, PD: types.PdCPU | types.PdTop, Wakeup: 1, Regdma: true}
	if _, err := s.EnterSleepWith(req); err != nil {
		t.Fatal(err)
	}
	if b.Field(en) != 1 {
		t.Fatal("backup not enabled")
	}
	want := s.SleepBudget(req)
	if got := s.Sequencer().LastBudget(); got != want || got.RegdmaWaitCycles == 0 {
		t.Fatalf("budget %+v want %+v", got, want)
	}

	if _, err := s.EnterSleep(types.HPSleep, 1, 0, false); err != nil {
		t.Fatal(err)
	}
	if b.Field(en) != 0 {
		t.Fatal("backup left enabled")
	}
}

func TestEnterSleep_ModemModeMissing(t *testing.T) {
	s, _, _ := newSystem(t, "esp32h2", nil)
	if err := s.SetCPUFrequency(96); err != nil {
		t.Fatal(err)
	}
	res, err := s.EnterSleep(types.HPModem, 1, 0, false)
	if errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("modem sleep on h2: %v", err)
	}
	if res != types.SleepNone {
		t.Fatalf("failed attempt reported %s", res)
	}
	if s.CPUFrequency() != 96 {
		t.Fatalf("clock not restored after failed attempt: %d", s.CPUFrequency())
	}
}

func TestConfigurePowerModeDefaults_AppliesTrim(t *testing.T) {
	ts := trim.Static{Bias: trim.Dbias{HPActive: 2, LPActive: -3}}
	s, b, _ := newSystem(t, "esp32c6", ts)
	regs := &s.Chip().Sleep.Regs

	mp, err := s.ConfigurePowerModeDefaults(types.HPActive)
	if err != nil {
		t.Fatal(err)
	}
	if mp.Analog.Dbias != 27 {
		t.Fatalf("returned hp active dbias %d", mp.Analog.Dbias)
	}
	if got := b.Field(regs.HP[types.HPActive].Dbias); got != 27 {
		t.Fatalf("hp active dbias %d", got)
	}
	if got := b.Field(regs.LP[types.LPActive].Dbias); got != 23 {
		t.Fatalf("lp active dbias %d", got)
	}
}

func TestConfigurePowerModeDefaults_AllModes(t *testing.T) {
	ts := trim.Static{Bias: trim.Dbias{HPModem: 1, HPSleep: -2}}
	s, b, _ := newSystem(t, "esp32c6", ts)
	regs := &s.Chip().Sleep.Regs
	defaults := s.Chip().Sleep.Modes

	cases := []struct {
		mode   types.HPMode
		dbias  uint8
		writes bool
	}{
		{types.HPActive, defaults.HP[types.HPActive].Analog.Dbias, true},
		{types.HPModem, defaults.HP[types.HPModem].Analog.Dbias + 1, true},
		{types.HPSleep, defaults.HP[types.HPSleep].Analog.Dbias - 2, false},
	}
	for _, c := range cases {
		b.Regs.ResetTrace()
		mp, err := s.ConfigurePowerModeDefaults(c.mode)
		if err != nil {
			t.Fatalf("%s: %v", c.mode, err)
		}
		if mp.Analog.Dbias != c.dbias {
			t.Fatalf("%s: dbias %d want %d", c.mode, mp.Analog.Dbias, c.dbias)
		}
		wrote := len(b.Regs.Writes(regs.HP[c.mode].Dbias.Addr)) > 0
		if wrote != c.writes {
			t.Fatalf("%s: wrote=%v want %v", c.mode, wrote, c.writes)
		}
	}

	h2, _, _ := newSystem(t, "esp32h2", nil)
	if _, err := h2.ConfigurePowerModeDefaults(types.HPModem); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("modem defaults on h2: %v", err)
	}
}

func TestSleepBudget_ClockCalibration(t *testing.T) {
	s, _, _ := newSystem(t, "esp32c6", nil)
	req := SleepRequest{Mode: types.HPSleep, PD: s.Chip().Sleep.DefaultPD}
	nominal := s.SleepBudget(req)

	s.SetClockCal(types.ClockCal{SlowHz: 150_000})
	measured := s.SleepBudget(req)
	if measured.LpWaitCycles == nominal.LpWaitCycles {
		t.Fatalf("lp wait cycles ignore the calibrated slow clock: %d", measured.LpWaitCycles)
	}
	if measured.HpWaitCycles != nominal.HpWaitCycles {
		t.Fatalf("hp wait cycles moved: %d -> %d", nominal.HpWaitCycles, measured.HpWaitCycles)
	}

	req.Cal = types.ClockCal{FastHz: 20_000_000}
	if got := s.SleepBudget(req); got.LpWaitCycles != measured.LpWaitCycles || got.HpWaitCycles != mathx.UsToCycles(got.HpWaitUs, 20_000_000) {
		t.Fatalf("per-request fast clock: %+v", got)
	}

	if _, err := s.EnterSleepWith(SleepRequest{Mode: types.HPSleep, PD: types.PdCPU, Wakeup: 1}); err != nil {
		t.Fatal(err)
	}
	want := s.SleepBudget(SleepRequest{Mode: types.HPSleep, PD: types.PdCPU})
	if got := s.Sequencer().LastBudget(); got != want {
		t.Fatalf("sleep used %+v want %+v", got, want)
	}
}

func TestPllConsumersThroughSystem(t *testing.T) {
	s, _, _ := newSystem(t, "esp32c6", nil)
	if err := s.PllAddConsumer(0); err != nil {
		t.Fatal(err)
	}
	if err := s.PllRemoveConsumer(0); err != nil {
		t.Fatal(err)
	}
	if err := s.PllRemoveConsumer(0); errcode.Of(err) != errcode.ConsumerAccountingViolation {
		t.Fatalf("underflow: %v", err)
	}
}
