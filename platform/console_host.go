//go:build !rp2040

package platform

import (
	"powerclock-go/services/clk"
	"powerclock-go/types"
)

// ConsoleHook logs frequency changes on hosted builds, where the console
// does not depend on the CPU clock.
func ConsoleHook(baud uint32) clk.Hook {
	return clk.HookFunc(func(from, to types.ClockConfig) {
		if from.FreqMHz == to.FreqMHz {
			return
		}
		println("[clk] cpu", from.FreqMHz, "->", to.FreqMHz, "MHz, console", baud, "baud")
	})
}
