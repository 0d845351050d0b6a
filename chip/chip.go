// Package chip holds the per-family hardware tables. Everything here is
// data: the switching and sleep algorithms are written once against these
// tables and never branch on the chip name.
package chip

import (
	"sort"

	"powerclock-go/errcode"
	"powerclock-go/types"
)

// Chip bundles the clock and power tables of one family.
type Chip struct {
	Name  string
	Clock types.ClockDescriptor
	Sleep types.SleepDescriptor
}

var registry = map[string]func() *Chip{
	"esp32c6": ESP32C6,
	"esp32h2": ESP32H2,
	"esp32p4": ESP32P4,
}

// Lookup returns a fresh copy of the named chip's tables.
func Lookup(name string) (*Chip, error) {
	mk, ok := registry[name]
	if !ok {
		return nil, errcode.New(errcode.UnknownChip, "chip.lookup", name)
	}
	return mk(), nil
}

// Names lists the known chips in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
