// Package regi2c drives the internal analog control bus (the slow serial
// channel carrying PLL, bias and regulator trims). The transport is a
// tinygo drivers.I2C: the block id is the I2C address and each transfer is
// [host id, register] followed by one data byte.
//
// The bus cannot tolerate interleaved transactions. Every exported call is
// one transaction and holds the bus lock for exactly that long.
package regi2c

import (
	"powerclock-go/x/critsec"

	"tinygo.org/x/drivers"
)

// Field is a bit range [Lsb, Msb] of one 8-bit control-bus register.
type Field struct {
	Block  uint8
	HostID uint8
	Reg    uint8
	Msb    uint8
	Lsb    uint8
}

// Present reports whether the field is populated.
func (f Field) Present() bool { return f.Block != 0 || f.Reg != 0 || f.Msb != 0 }

func (f Field) mask() uint8 {
	w := f.Msb - f.Lsb + 1
	if w >= 8 {
		return 0xFF
	}
	return ((uint8(1) << w) - 1) << f.Lsb
}

// Write is one field assignment, used for PLL divider tables.
type Write struct {
	Field Field
	Val   uint8
}

// Bus serialises control-bus transactions.
type Bus struct {
	i2c  drivers.I2C
	lock *critsec.Section

	// Fixed buffers to avoid per-call heap allocations.
	w [3]byte
	r [1]byte
}

// New wraps a transport.
func New(i2c drivers.I2C) *Bus {
	return &Bus{i2c: i2c, lock: critsec.New()}
}

// WriteReg writes a whole register.
func (b *Bus) WriteReg(block, hostID, reg, val uint8) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.writeReg(block, hostID, reg, val)
}

// WriteField is a read-modify-write of f as a single transaction.
func (b *Bus) WriteField(f Field, v uint8) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	m := f.mask()
	if m == 0xFF {
		return b.writeReg(f.Block, f.HostID, f.Reg, v)
	}
	cur, err := b.readReg(f.Block, f.HostID, f.Reg)
	if err != nil {
		return err
	}
	return b.writeReg(f.Block, f.HostID, f.Reg, (cur&^m)|((v<<f.Lsb)&m))
}

// ReadField returns the value of f.
func (b *Bus) ReadField(f Field) (uint8, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	cur, err := b.readReg(f.Block, f.HostID, f.Reg)
	if err != nil {
		return 0, err
	}
	return (cur & f.mask()) >> f.Lsb, nil
}

// Apply performs each write in order, one transaction per write.
func (b *Bus) Apply(ws []Write) error {
	for _, w := range ws {
		if err := b.WriteField(w.Field, w.Val); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bus) writeReg(block, hostID, reg, val uint8) error {
	b.w[0] = hostID
	b.w[1] = reg
	b.w[2] = val
	return b.i2c.Tx(uint16(block), b.w[:3], nil)
}

func (b *Bus) readReg(block, hostID, reg uint8) (uint8, error) {
	b.w[0] = hostID
	b.w[1] = reg
	if err := b.i2c.Tx(uint16(block), b.w[:2], b.r[:1]); err != nil {
		return 0, err
	}
	return b.r[0], nil
}
