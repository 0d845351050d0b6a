package powerclk

import (
	"powerclock-go/bus"
	"powerclock-go/types"
)

var (
	TopicCPUFreq     = bus.T("clk", "cpu", "freq")
	TopicSleepResult = bus.T("pm", "sleep", "result")
)

// FreqEvent is the retained payload on TopicCPUFreq.
type FreqEvent struct {
	MHz     uint32
	Source  string
	PrevMHz uint32
}

// SleepEvent is the retained payload on TopicSleepResult.
type SleepEvent struct {
	Result  string
	GuardUs uint32
}

// NotifyHook publishes clock switches and sleep outcomes on the bus.
type NotifyHook struct {
	conn *bus.Connection
}

func NewNotifyHook(conn *bus.Connection) *NotifyHook { return &NotifyHook{conn: conn} }

func (h *NotifyHook) BeforeSwitch(from, to types.ClockConfig) {}

func (h *NotifyHook) AfterSwitch(from, to types.ClockConfig) {
	h.conn.Publish(h.conn.NewMessage(TopicCPUFreq, FreqEvent{
		MHz:     to.FreqMHz,
		Source:  to.Source.String(),
		PrevMHz: from.FreqMHz,
	}, true))
}

func (h *NotifyHook) AfterSleep(res types.SleepResult, b types.SleepBudget) {
	h.conn.Publish(h.conn.NewMessage(TopicSleepResult, SleepEvent{
		Result:  res.String(),
		GuardUs: b.TotalGuardTimeUs,
	}, true))
}
