// Package monitor reports host health and carries the daemon-wide
// abort switch.
package monitor

import (
	"context"
	"sync/atomic"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/sirupsen/logrus"
)

// Snapshot is the health payload served by the metrics endpoint.
type Snapshot struct {
	CPU         float64 `json:"cpu"`
	RAM         float64 `json:"ram"`
	AbortStatus bool    `json:"abort_status"`
}

// Monitor samples host load on demand. The abort flag is armed by the
// operator and observed by every lifecycle worker.
type Monitor struct {
	aborted atomic.Bool
	log     *logrus.Logger
}

func New(log *logrus.Logger) *Monitor {
	return &Monitor{log: log}
}

// Snapshot samples CPU and RAM usage. Sampling failures degrade to
// zero values; the abort flag is always accurate.
func (m *Monitor) Snapshot(ctx context.Context) Snapshot {
	snap := Snapshot{AbortStatus: m.aborted.Load()}

	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil || len(percents) == 0 {
		m.log.WithField("component", "monitor").Debugf("cpu sample failed: %v", err)
	} else {
		snap.CPU = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		m.log.WithField("component", "monitor").Debugf("memory sample failed: %v", err)
	} else {
		snap.RAM = vm.UsedPercent
	}
	return snap
}

// RequestAbort arms the abort switch. Running tasks observe it at
// their next checkpoint and stop.
func (m *Monitor) RequestAbort() {
	m.aborted.Store(true)
	m.log.WithField("component", "monitor").Warn("abort requested")
}

// Reset clears the abort switch.
func (m *Monitor) Reset() {
	m.aborted.Store(false)
}

// AbortRequested reports whether the switch is armed.
func (m *Monitor) AbortRequested() bool {
	return m.aborted.Load()
}
