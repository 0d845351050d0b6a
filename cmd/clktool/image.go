package main

import (
	"encoding/binary"
	"io"
	"os"

	"powerclock-go/drivers/sim"

	"github.com/marcinbor85/gohex"
	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"
)

var (
	imageOpts = struct {
		output string
	}{}

	imageCmd = &cobra.Command{
		Use:   "image",
		Short: "Program a sleep attempt and dump the power registers as Intel HEX",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv()
			if err != nil {
				return err
			}
			req, err := sleepRequest(e)
			if err != nil {
				return err
			}

			e.board.Regs.ResetTrace()
			x := e.sys.Tree().Lock()
			seq := e.sys.Sequencer()
			if req.Regdma {
				seq.EnableRegdmaBackup(x)
			}
			p, err := seq.BuildParams(x, req.Mode, req.Flags, req.PD, req.GuardAdjustUs, req.Cal)
			if err == nil {
				err = seq.Program(x, p)
			}
			seq.Reset(x)
			x.Unlock()
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if imageOpts.output != "" && imageOpts.output != "-" {
				f, err := os.Create(imageOpts.output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return dumpHex(w, e.board.Regs.Trace())
		},
	}
)

func init() {
	imageCmd.Flags().StringVarP(&imageOpts.output, "output", "o", "-", "output file")
}

// dumpHex writes the final value of every written register, little
// endian, at its bus address.
func dumpHex(w io.Writer, trace []sim.Op) error {
	last := make(map[uint32]uint32)
	var addrs []uint32
	for _, op := range trace {
		if _, seen := last[op.Addr]; !seen {
			addrs = append(addrs, op.Addr)
		}
		last[op.Addr] = op.Val
	}
	slices.Sort(addrs)

	mem := gohex.NewMemory()
	var word [4]byte
	for _, a := range addrs {
		binary.LittleEndian.PutUint32(word[:], last[a])
		if err := mem.AddBinary(a, slices.Clone(word[:])); err != nil {
			return err
		}
	}
	return mem.DumpIntelHex(w, 16)
}
