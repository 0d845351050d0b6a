package main

import (
	"fmt"
	"strconv"

	"powerclock-go/services/powerclk"

	"github.com/spf13/cobra"
)

var (
	switchOpts = struct {
		trace bool
	}{}

	switchCmd = &cobra.Command{
		Use:   "switch MHZ...",
		Short: "Switch the simulated CPU through a list of frequencies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			sub := e.bus.NewConnection("clktool").Subscribe(powerclk.TopicCPUFreq)
			defer sub.Unsubscribe()

			for _, a := range args {
				mhz, err := strconv.ParseUint(a, 10, 32)
				if err != nil {
					return err
				}
				e.board.Regs.ResetTrace()
				ctlBefore := e.board.Ctl.Transactions()
				if err := e.sys.SetCPUFrequency(uint32(mhz)); err != nil {
					return err
				}
				fmt.Fprintf(out, "-> %d MHz  %s\n", mhz, describe(e.sys.Tree().Current()))
				if switchOpts.trace {
					for _, op := range e.board.Regs.Trace() {
						fmt.Fprintf(out, "   w %08x = %08x\n", op.Addr, op.Val)
					}
				}
				if n := e.board.Ctl.Transactions() - ctlBefore; n > 0 {
					fmt.Fprintf(out, "   control bus: %d transactions\n", n)
				}
				for drained := false; !drained; {
					select {
					case m := <-sub.Channel():
						ev := m.Payload.(powerclk.FreqEvent)
						fmt.Fprintf(out, "   event %s: %d -> %d MHz (%s)\n", m.Topic, ev.PrevMHz, ev.MHz, ev.Source)
					default:
						drained = true
					}
				}
			}
			return nil
		},
	}
)

func init() {
	switchCmd.Flags().BoolVar(&switchOpts.trace, "trace", false, "print every register write")
}
