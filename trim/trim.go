// Package trim is the read-only view of factory-programmed calibration
// data (efuse). The core reads it once at init.
package trim

import (
	"encoding/json"
	"io"
)

// Source is the efuse accessor.
type Source interface {
	// XtalFreqMHz returns the strapped crystal frequency, 0 if unknown.
	XtalFreqMHz() uint32
	// DbiasOffsets returns signed regulator trims per HP/LP mode.
	DbiasOffsets() Dbias
	// OCode returns the bandgap o-code, 0 if not programmed.
	OCode() uint8
}

// Dbias holds signed corrections applied on top of the mode defaults.
// A zero value leaves the defaults untouched.
type Dbias struct {
	HPActive int8 `json:"hp_active"`
	HPModem  int8 `json:"hp_modem"`
	HPSleep  int8 `json:"hp_sleep"`
	LPActive int8 `json:"lp_active"`
	LPSleep  int8 `json:"lp_sleep"`
}

// Static is a fixed Source, used by hosted tools and tests.
type Static struct {
	Xtal  uint32 `json:"xtal_mhz"`
	Bias  Dbias  `json:"dbias"`
	Ocode uint8  `json:"ocode"`
}

func (s Static) XtalFreqMHz() uint32 { return s.Xtal }
func (s Static) DbiasOffsets() Dbias { return s.Bias }
func (s Static) OCode() uint8        { return s.Ocode }

// None is an unprogrammed efuse.
var None Source = Static{}

// Decode reads a Static from JSON.
func Decode(r io.Reader) (Static, error) {
	var s Static
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Static{}, err
	}
	return s, nil
}

// ApplyDbias adds a signed trim to a default code, clamped to [0, max].
func ApplyDbias(code uint8, off int8, max uint8) uint8 {
	v := int16(code) + int16(off)
	if v < 0 {
		return 0
	}
	if v > int16(max) {
		return max
	}
	return uint8(v)
}
