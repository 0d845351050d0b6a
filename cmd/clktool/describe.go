package main

import (
	"fmt"
	"strings"

	"powerclock-go/types"
)

func describe(c types.ClockConfig) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%-8s %4d MHz / %s", c.Source, c.SourceFreqMHz, divider(c.Divider))
	if c.PllFreqMHz != 0 {
		fmt.Fprintf(&sb, "  pll %d MHz", c.PllFreqMHz)
	}
	sb.WriteString("  bus")
	for _, d := range c.BusDiv {
		fmt.Fprintf(&sb, " /%d", d)
	}
	return sb.String()
}

func divider(f types.Fraction) string {
	if f.IsInteger() {
		return fmt.Sprintf("%d", f.Int)
	}
	return fmt.Sprintf("%d+%d/%d", f.Int, f.Num, f.Den)
}
