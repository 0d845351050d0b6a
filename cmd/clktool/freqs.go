package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	freqsCmd = &cobra.Command{
		Use:   "freqs",
		Short: "List legal CPU frequencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			tr := e.sys.Tree()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: crystal %d MHz\n", rootOpts.chip, tr.XtalMHz())
			for _, f := range tr.LegalFreqs() {
				c, err := tr.Resolve(f)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%4d MHz  %s\n", f, describe(c))
			}
			return nil
		},
	}

	resolveCmd = &cobra.Command{
		Use:   "resolve MHZ...",
		Short: "Resolve frequencies to clock configs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			for _, a := range args {
				mhz, err := strconv.ParseUint(a, 10, 32)
				if err != nil {
					return err
				}
				c, err := e.sys.Tree().Resolve(uint32(mhz))
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%4d MHz  %v\n", mhz, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%4d MHz  %s\n", mhz, describe(c))
			}
			return nil
		},
	}
)
