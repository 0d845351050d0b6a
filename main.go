package main

import (
	"time"

	"powerclock-go/chip"
	"powerclock-go/drivers/sim"
	"powerclock-go/platform"
	"powerclock-go/services/clk"
	"powerclock-go/services/powerclk"
	"powerclock-go/trim"
	"powerclock-go/types"
)

// Demo loop: step the CPU through its PLL frequencies once a second and
// take a light sleep every few steps, on a simulated esp32c6.
func main() {
	time.Sleep(2 * time.Second)
	println("boot")

	c, err := chip.Lookup("esp32c6")
	if err != nil {
		panic(err.Error())
	}
	b := sim.NewBoard(c)
	sys, err := powerclk.New(c, b.Regs, b.Ctl, trim.None, powerclk.Config{
		Hooks: []clk.Hook{platform.ConsoleHook(115200)},
	})
	if err != nil {
		panic(err.Error())
	}

	var steps []uint32
	for _, pt := range c.Clock.PllTargets {
		steps = append(steps, pt.FreqMHz)
	}
	steps = append(steps, c.Clock.XtalMHz)

	tick := time.NewTicker(1 * time.Second)
	defer tick.Stop()

	n := 0
	for t := range tick.C {
		sys.MustSetCPUFrequency(steps[n%len(steps)])
		n++
		if n%4 == 0 {
			res, err := sys.EnterSleep(types.HPSleep, 1, 0, false)
			if err != nil {
				println("[pm] sleep failed:", err.Error())
				continue
			}
			println(t.Format("15:04:05"), "sleep", res.String(), "guard", sys.Sequencer().LastBudget().TotalGuardTimeUs, "us")
			continue
		}
		println(t.Format("15:04:05"), "cpu", sys.CPUFrequency(), "MHz")
	}
}
