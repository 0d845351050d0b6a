// Command clktool exercises the clock tree and the sleep sequencer of a
// chip against simulated registers: list legal frequencies, resolve and
// replay switches, compute sleep budgets and export programmed power
// registers as Intel HEX.
package main

import (
	"os"

	"powerclock-go/bus"
	"powerclock-go/chip"
	"powerclock-go/drivers/sim"
	"powerclock-go/services/powerclk"
	"powerclock-go/trim"

	"github.com/spf13/cobra"
)

var (
	rootOpts = struct {
		chip string
		trim string
	}{}

	rootCmd = &cobra.Command{
		Use:           "clktool",
		Short:         "Clock tree and power mode tool",
		Long:          "Resolve CPU frequencies, replay clock switches and compute sleep budgets against simulated chip registers.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootOpts.chip, "chip", "c", "esp32c6", "chip family")
	rootCmd.PersistentFlags().StringVarP(&rootOpts.trim, "trim", "t", "", "JSON file with efuse trim overrides")
	rootCmd.AddCommand(freqsCmd, resolveCmd, switchCmd, budgetCmd, imageCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		println("clktool:", err.Error())
		os.Exit(1)
	}
}

// env is one simulated device.
type env struct {
	board *sim.Board
	bus   *bus.Bus
	sys   *powerclk.System
	trim  trim.Static
}

func newEnv() (*env, error) {
	c, err := chip.Lookup(rootOpts.chip)
	if err != nil {
		return nil, err
	}
	ts, err := loadTrim(rootOpts.trim)
	if err != nil {
		return nil, err
	}
	b := sim.NewBoard(c)
	bb := bus.NewBus(16)
	sys, err := powerclk.New(c, b.Regs, b.Ctl, ts, powerclk.Config{Bus: bb})
	if err != nil {
		return nil, err
	}
	return &env{
		board: b,
		bus:   bb,
		sys:   sys,
		trim:  ts,
	}, nil
}

func loadTrim(path string) (trim.Static, error) {
	if path == "" {
		return trim.Static{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return trim.Static{}, err
	}
	defer f.Close()
	return trim.Decode(f)
}
