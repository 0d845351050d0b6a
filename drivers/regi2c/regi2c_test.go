package regi2c

import (
	"errors"
	"testing"

	"tinygo.org/x/drivers"
)

// Compile-time check.
var _ drivers.I2C = (*fakeCtl)(nil)

type regKey struct{ block, host, reg uint8 }

type fakeCtl struct {
	regs   map[regKey]uint8
	writes int
	reads  int
	fail   error
}

func newFakeCtl() *fakeCtl { return &fakeCtl{regs: map[regKey]uint8{}} }

func (f *fakeCtl) Tx(addr uint16, w, r []byte) error {
	if f.fail != nil {
		return f.fail
	}
	k := regKey{uint8(addr), w[0], w[1]}
	switch {
	case len(w) == 3 && len(r) == 0:
		f.regs[k] = w[2]
		f.writes++
	case len(w) == 2 && len(r) == 1:
		r[0] = f.regs[k]
		f.reads++
	default:
		return errors.New("bad frame")
	}
	return nil
}

func TestFieldWritePreservesNeighbours(t *testing.T) {
	ctl := newFakeCtl()
	b := New(ctl)
	if err := b.WriteReg(0x66, 0, 2, 0xFF); err != nil {
		t.Fatal(err)
	}
	f := Field{Block: 0x66, HostID: 0, Reg: 2, Msb: 5, Lsb: 3}
	if err := b.WriteField(f, 0); err != nil {
		t.Fatal(err)
	}
	if got := ctl.regs[regKey{0x66, 0, 2}]; got != 0xC7 {
		t.Fatalf("reg=%#x want 0xc7", got)
	}
	if err := b.WriteField(f, 5); err != nil {
		t.Fatal(err)
	}
	v, err := b.ReadField(f)
	if err != nil || v != 5 {
		t.Fatalf("ReadField=%d err=%v", v, err)
	}
}

func TestWholeRegisterFieldSkipsRead(t *testing.T) {
	ctl := newFakeCtl()
	b := New(ctl)
	if err := b.WriteField(Field{Block: 0x66, Reg: 4, Msb: 7, Lsb: 0}, 0x3C); err != nil {
		t.Fatal(err)
	}
	if ctl.reads != 0 || ctl.writes != 1 {
		t.Fatalf("reads=%d writes=%d", ctl.reads, ctl.writes)
	}
}

func TestApplyStopsOnError(t *testing.T) {
	ctl := newFakeCtl()
	ctl.fail = errors.New("nack")
	b := New(ctl)
	err := b.Apply([]Write{{Field: Field{Block: 1, Reg: 1, Msb: 7}, Val: 1}})
	if err == nil {
		t.Fatal("expected transport error")
	}
}
