// Package regbus is the memory-mapped register access seam. Chip data
// describes register fields; the clock and power code only ever touches
// hardware through a Bus.
package regbus

// Bus is raw 32-bit register I/O.
type Bus interface {
	Read(addr uint32) uint32
	Write(addr, val uint32)
}

// Field is a bit range inside one register. A zero Width marks a field
// the chip does not have; accesses to it are no-ops.
type Field struct {
	Addr  uint32
	Shift uint8
	Width uint8
}

// F is shorthand for a Field literal.
func F(addr uint32, shift, width uint8) Field {
	return Field{Addr: addr, Shift: shift, Width: width}
}

// Present reports whether the chip implements the field.
func (f Field) Present() bool { return f.Width != 0 }

// Mask returns the in-register mask of the field.
func (f Field) Mask() uint32 {
	if f.Width >= 32 {
		return 0xFFFF_FFFF
	}
	return ((uint32(1) << f.Width) - 1) << f.Shift
}

// Max returns the largest value the field can hold.
func (f Field) Max() uint32 { return f.Mask() >> f.Shift }

// ReadField returns the field value, or 0 for an absent field.
func ReadField(b Bus, f Field) uint32 {
	if !f.Present() {
		return 0
	}
	return (b.Read(f.Addr) & f.Mask()) >> f.Shift
}

// WriteField is a read-modify-write of one field. Full-width fields are
// written without the read. Values wider than the field are truncated.
func WriteField(b Bus, f Field, v uint32) {
	if !f.Present() {
		return
	}
	m := f.Mask()
	if m == 0xFFFF_FFFF {
		b.Write(f.Addr, v)
		return
	}
	cur := b.Read(f.Addr)
	b.Write(f.Addr, (cur&^m)|((v<<f.Shift)&m))
}

// WriteBool writes 1 or 0.
func WriteBool(b Bus, f Field, on bool) {
	var v uint32
	if on {
		v = 1
	}
	WriteField(b, f, v)
}
