//go:build rp2040

package platform

import (
	"powerclock-go/services/clk"
	"powerclock-go/types"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

// ConsoleHook re-applies the console baud rate after the CPU clock
// changed, since the UART divisor is derived from it.
func ConsoleHook(baud uint32) clk.Hook {
	return clk.HookFunc(func(from, to types.ClockConfig) {
		if from.FreqMHz == to.FreqMHz {
			return
		}
		uartx.UART0.SetBaudRate(baud)
	})
}
