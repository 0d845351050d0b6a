package clk

import "powerclock-go/types"

// Hook observes CPU clock switches. Both calls run inside the critical
// section and must not call back into the Tree.
type Hook interface {
	BeforeSwitch(from, to types.ClockConfig)
	AfterSwitch(from, to types.ClockConfig)
}

// HookFunc adapts a function to a Hook that only sees completed switches.
type HookFunc func(from, to types.ClockConfig)

func (f HookFunc) BeforeSwitch(from, to types.ClockConfig) {}
func (f HookFunc) AfterSwitch(from, to types.ClockConfig)  { f(from, to) }

// Hooks fans out to several hooks in order.
type Hooks []Hook

func (hs Hooks) BeforeSwitch(from, to types.ClockConfig) {
	for _, h := range hs {
		if h != nil {
			h.BeforeSwitch(from, to)
		}
	}
}

func (hs Hooks) AfterSwitch(from, to types.ClockConfig) {
	for _, h := range hs {
		if h != nil {
			h.AfterSwitch(from, to)
		}
	}
}

type nopHook struct{}

func (nopHook) BeforeSwitch(from, to types.ClockConfig) {}
func (nopHook) AfterSwitch(from, to types.ClockConfig)  {}
