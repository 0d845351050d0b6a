package main

import (
	"fmt"
	"strings"

	"powerclock-go/services/powerclk"
	"powerclock-go/types"

	"github.com/spf13/cobra"
)

var pdNames = map[string]types.PowerDown{
	"top":      types.PdTop,
	"vddsdio":  types.PdVddSdio,
	"modem":    types.PdModem,
	"hpperiph": types.PdHPPeriph,
	"cpu":      types.PdCPU,
	"mem":      types.PdMem,
	"xtal":     types.PdXtal,
	"rcfast":   types.PdRcFast,
	"xtal32k":  types.PdXtal32K,
}

var modeNames = map[string]types.HPMode{
	"sleep": types.HPSleep,
	"modem": types.HPModem,
}

var (
	sleepOpts = struct {
		pd     string
		mode   string
		coex   bool
		regdma bool
		guard  int32
		slowHz uint32
		fastHz uint32
	}{}

	budgetCmd = &cobra.Command{
		Use:   "budget",
		Short: "Compute the sleep wait budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			req, err := sleepRequest(e)
			if err != nil {
				return err
			}
			b := e.sys.SleepBudget(req)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "lp wait        %6d us  %6d cycles\n", b.LpWaitUs, b.LpWaitCycles)
			fmt.Fprintf(out, "hp wait        %6d us  %6d cycles\n", b.HpWaitUs, b.HpWaitCycles)
			fmt.Fprintf(out, "xtal stable              %6d cycles\n", b.XtalStableWaitCycles)
			fmt.Fprintf(out, "pll stable               %6d cycles\n", b.PllStableWaitCycles)
			fmt.Fprintf(out, "modem wakeup             %6d cycles\n", b.ModemWakeupWaitCycles)
			fmt.Fprintf(out, "regdma                   %6d cycles\n", b.RegdmaWaitCycles)
			fmt.Fprintf(out, "guard time     %6d us\n", b.TotalGuardTimeUs)
			if oc := e.trim.OCode(); oc != 0 {
				d := &e.sys.Chip().Sleep
				fmt.Fprintf(out, "bandgap ocode  %6d  (control bus %d)\n", oc, e.board.Ctl.Reg(d.OCode.Block, d.OCode.HostID, d.OCode.Reg))
			}
			return nil
		},
	}
)

func init() {
	for _, c := range []*cobra.Command{budgetCmd, imageCmd} {
		c.Flags().StringVar(&sleepOpts.pd, "pd", "", "comma-separated power-down set (default: chip default)")
		c.Flags().StringVar(&sleepOpts.mode, "mode", "sleep", "HP mode held while asleep: sleep or modem")
		c.Flags().BoolVar(&sleepOpts.coex, "coex", false, "keep radio coexistence alive")
		c.Flags().BoolVar(&sleepOpts.regdma, "regdma", false, "enable register-DMA backup")
		c.Flags().Int32Var(&sleepOpts.guard, "guard", 0, "guard time adjustment in microseconds")
		c.Flags().Uint32Var(&sleepOpts.slowHz, "slow-hz", 0, "measured LP clock rate (default: nominal)")
		c.Flags().Uint32Var(&sleepOpts.fastHz, "fast-hz", 0, "measured HP wake clock rate (default: nominal)")
	}
}

func sleepRequest(e *env) (powerclk.SleepRequest, error) {
	mode, ok := modeNames[sleepOpts.mode]
	if !ok {
		return powerclk.SleepRequest{}, fmt.Errorf("unknown mode %q", sleepOpts.mode)
	}
	req := powerclk.SleepRequest{
		Mode:          mode,
		PD:            e.sys.Chip().Sleep.DefaultPD,
		GuardAdjustUs: sleepOpts.guard,
		Regdma:        sleepOpts.regdma,
		Cal:           types.ClockCal{SlowHz: sleepOpts.slowHz, FastHz: sleepOpts.fastHz},
	}
	if sleepOpts.coex {
		req.Flags |= types.SleepModemCoex
	}
	if sleepOpts.pd != "" {
		req.PD = 0
		for _, n := range strings.Split(sleepOpts.pd, ",") {
			pd, ok := pdNames[strings.TrimSpace(n)]
			if !ok {
				return powerclk.SleepRequest{}, fmt.Errorf("unknown power domain %q", n)
			}
			req.PD |= pd
		}
	}
	return req, nil
}
